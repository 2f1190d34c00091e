package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	labelStyle         = color.New(color.Faint)
	addressStyle       = color.New(color.FgWhite)
	hashStyle          = color.New(color.FgBlue)
	timestampStyle     = color.New(color.Faint)
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	pendingStyle       = color.New(color.FgYellow)
	readyStyle         = color.New(color.FgGreen)
	failedStyle        = color.New(color.FgRed)

	titleCase = cases.Title(language.English)
)

// CallDescriber renders a payload for the target it is sent to
type CallDescriber func(target common.Address, payload []byte) string

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Extract just the error message part (after the last colon if it's an error chain)
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]

	// Capitalize first letter
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// FormatStatus colors a proposal state
func FormatStatus(status models.ProposalStatus) string {
	label := titleCase.String(string(status))
	switch status {
	case models.ProposalStatusPending, models.ProposalStatusQueued:
		return pendingStyle.Sprint(label)
	case models.ProposalStatusActive:
		return color.New(color.FgCyan).Sprint(label)
	case models.ProposalStatusSucceeded, models.ProposalStatusExecuted:
		return readyStyle.Sprint(label)
	default:
		return failedStyle.Sprint(label)
	}
}

// FormatActionStatus colors a scheduled action status
func FormatActionStatus(status models.ActionStatus) string {
	label := titleCase.String(string(status))
	switch status {
	case models.ActionStatusReady:
		return readyStyle.Sprint(label)
	case models.ActionStatusExpired:
		return failedStyle.Sprint(label)
	default:
		return pendingStyle.Sprint(label)
	}
}

// ShortHash abbreviates a hash for tables
func ShortHash(h common.Hash) string {
	s := h.Hex()
	return s[:10] + "…" + s[len(s)-4:]
}

// FormatTimestamp renders a unix timestamp in UTC
func FormatTimestamp(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration renders seconds as a duration
func FormatDuration(seconds uint64) string {
	return (time.Duration(seconds) * time.Second).String()
}

// FormatAmount renders a token amount with thousands separators
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// JSON writes v as indented json
func JSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func field(out io.Writer, label string, value string) {
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Sprintf("%-12s", label+":"), value)
}

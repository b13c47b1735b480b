package cheatnet

import (
	"regexp"
	"strings"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/utils"
)

// ByteArrayMagic prefixes panic data that holds a serialised byte array
var ByteArrayMagic = core.ByteArrayMagic

var (
	entryPointNotFound  = core.MustEncodeShortString("ENTRYPOINT_NOT_FOUND")
	entryPointFailed    = core.MustEncodeShortString("ENTRYPOINT_FAILED")
	contractNotDeployed = core.MustEncodeShortString("CONTRACT_NOT_DEPLOYED")
	fraudAttempt        = core.MustEncodeShortString("FRAUD_ATTEMPT")
)

var (
	reFailureReason = regexp.MustCompile(`[\s\S]*Execution failed\. Failure reason:\nError in contract \(.+\):\n([\s\S]*)\.`)
	reHexFelt       = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	// node errors pad the selector to 64 digits
	reEntryPoint = regexp.MustCompile(`Entry point EntryPointSelector\((0x[a-fA-F0-9]{0,64})\) not found in contract\.`)
)

// FormatPanicData renders panic data for humans: a byte array as a quoted
// string, a single felt as 0x.. with its short string form when printable,
// several felts as a parenthesised list.
func FormatPanicData(data []felt.Felt) string {
	if len(data) > 0 && data[0].Equal(ByteArrayMagic) {
		if s, n, err := core.DecodeByteArray(data[1:]); err == nil && n == len(data)-1 {
			return `"` + s + `"`
		}
	}
	if len(data) == 1 {
		return formatFelt(data[0])
	}
	return "(" + strings.Join(utils.Map(data, formatFelt), ", ") + ")"
}

func formatFelt(f felt.Felt) string {
	if s, ok := core.DecodeShortString(&f); ok {
		return f.String() + " ('" + s + "')"
	}
	return f.String()
}

// ExtractPanicData recovers the panic data of a failed nested call from the
// text of an execution error
func ExtractPanicData(text string) ([]felt.Felt, bool) {
	match := reFailureReason.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	raw := match[1]

	switch {
	case strings.HasPrefix(raw, `"`):
		return ByteArrayPanicData(strings.Trim(raw, `"`)), true
	case strings.HasPrefix(raw, "0x"), strings.HasPrefix(raw, "("):
		var data []felt.Felt
		for _, hex := range reHexFelt.FindAllString(raw, -1) {
			f, err := felt.NewFromString(hex)
			if err != nil {
				continue
			}
			data = append(data, *f)
		}
		return data, true
	case reEntryPoint.MatchString(text):
		return []felt.Felt{entryPointNotFound, entryPointFailed}, true
	default:
		return nil, false
	}
}

// ByteArrayPanicData encodes msg the way contracts panic with a string
func ByteArrayPanicData(msg string) []felt.Felt {
	return core.ByteArrayPanicData(msg)
}

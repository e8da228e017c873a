package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordBytes is the floor below which neither the policy nor the hasher
// accepts a password, whatever the configuration says.
const MinPasswordBytes = 8

// ErrPolicyViolation is returned by Policy.Check; the message names the unmet rules.
var ErrPolicyViolation = errors.New("password does not meet security requirements")

// PolicyConfig selects the strength rules applied to a new password.
type PolicyConfig struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicyConfig requires 8+ characters with upper, lower, digit and symbol.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinLength:     MinPasswordBytes,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Requirements is the per-rule checklist shown next to the password field.
// A rule that is not required by the policy reports true.
type Requirements struct {
	Length    bool
	Upper     bool
	Lower     bool
	Digit     bool
	Symbol    bool
	LineBreak bool // true when the password contains no line terminator
}

// Satisfied reports whether every rule passed.
func (r Requirements) Satisfied() bool {
	return r.Length && r.Upper && r.Lower && r.Digit && r.Symbol && r.LineBreak
}

func (r Requirements) missing() []string {
	var out []string
	if !r.Length {
		out = append(out, "length")
	}
	if !r.Upper {
		out = append(out, "uppercase")
	}
	if !r.Lower {
		out = append(out, "lowercase")
	}
	if !r.Digit {
		out = append(out, "digit")
	}
	if !r.Symbol {
		out = append(out, "symbol")
	}
	if !r.LineBreak {
		out = append(out, "single line")
	}
	return out
}

// Policy evaluates password strength. It is immutable and safe for concurrent use.
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy validates cfg and returns a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if cfg.MinLength < MinPasswordBytes {
		return nil, fmt.Errorf("password policy min length must be >= %d", MinPasswordBytes)
	}
	return &Policy{cfg: cfg}, nil
}

// Requirements evaluates every rule against pwd.
//
// Letters and digits are ASCII classes. Anything that is neither an ASCII
// letter, digit, underscore nor whitespace counts as a symbol.
func (p *Policy) Requirements(pwd string) Requirements {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	singleLine := true

	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '_':
		case isLineTerminator(r):
			singleLine = false
		case unicode.IsSpace(r):
		default:
			hasSymbol = true
		}
	}

	return Requirements{
		Length:    utf8.RuneCountInString(pwd) >= p.cfg.MinLength,
		Upper:     hasUpper || !p.cfg.RequireUpper,
		Lower:     hasLower || !p.cfg.RequireLower,
		Digit:     hasDigit || !p.cfg.RequireDigit,
		Symbol:    hasSymbol || !p.cfg.RequireSymbol,
		LineBreak: singleLine,
	}
}

// Check returns nil when pwd satisfies the policy, ErrPolicyViolation otherwise.
func (p *Policy) Check(pwd string) error {
	req := p.Requirements(pwd)
	if req.Satisfied() {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrPolicyViolation, strings.Join(req.missing(), ", "))
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

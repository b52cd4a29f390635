package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// ========== Hex ==========

// isHex validates whether each byte is valid hexadecimal string.
func isHex(str string) bool {
	for _, c := range []byte(str) {
		if !isHexCharacter(c) {
			return false
		}
	}
	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// has0xPrefix validates str begins with '0x' or '0X'.
func has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}

// ========== Address ==========

// ParseAddress accepts a 20 byte hex address with or without 0x prefix. Unlike
// common.HexToAddress it rejects malformed input instead of truncating or
// padding it.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	raw := s
	if has0xPrefix(raw) {
		raw = raw[2:]
	}
	if len(raw) != 2*common.AddressLength || !isHex(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(raw), nil
}

// ========== Amount ==========

var units = map[string]*big.Int{
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
	"eth":   big.NewInt(params.Ether),
}

// ParseWei parses a native token amount into wei. Accepted forms are a decimal
// or 0x-prefixed integer in wei, or a decimal with a unit suffix such as
// "1.5gwei" or "0.05ether". Amounts that do not resolve to a whole number of wei
// and negative amounts are rejected.
func ParseWei(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if has0xPrefix(s) {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok || !isHex(s[2:]) {
			return nil, fmt.Errorf("invalid hex amount %q", s)
		}
		return v, nil
	}

	unit := units["wei"]
	for _, name := range []string{"gwei", "ether", "eth", "wei"} {
		if strings.HasSuffix(s, name) {
			unit = units[name]
			s = strings.TrimSpace(strings.TrimSuffix(s, name))
			break
		}
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(unit))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther renders wei as a decimal ether string with trailing zeros trimmed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return ""
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	out := r.FloatString(18)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	return out
}

package auth

import (
	"fmt"

	"github.com/xssnick/tonutils-go/address"

	"dchat/errors"
)

// NormalizeWallet parses a TON wallet address presented during the
// handshake and returns its canonical form. Addresses are stored
// case-sensitive exactly as normalized here; an unparseable address is
// InvalidInput.
func NormalizeWallet(raw string) (string, error) {
	addr, err := address.ParseAddr(raw)
	if err != nil {
		return "", fmt.Errorf("wallet address %q: %w", raw, errors.ErrInvalidInput)
	}
	return addr.String(), nil
}

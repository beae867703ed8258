package order

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/Proton-105/gigip2p-bot/internal/token"
)

// ErrAmountOverflow is returned when the base-unit amount does not fit in 256 bits.
var ErrAmountOverflow = errors.New("amount does not fit in 256 bits")

// SigningLinks builds the URL of the external wallet signing page.
type SigningLinks struct {
	base    *url.URL
	catalog *token.Catalog
}

// NewSigningLinks parses the signing page base URL.
func NewSigningLinks(baseURL string, catalog *token.Catalog) (*SigningLinks, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse signing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("signing base url %q must be absolute", baseURL)
	}
	return &SigningLinks{base: u, catalog: catalog}, nil
}

// Build returns sign.html?amount=<base units>&to=<address>&user_id=<id>[&network=][&tag=].
func (s *SigningLinks) Build(o *Order) (string, error) {
	decimals := 0
	if t, ok := s.catalog.Lookup(o.Token); ok {
		decimals = t.DecimalsOn(o.Network)
	}

	units, err := BaseUnits(o.Amount, decimals)
	if err != nil {
		return "", err
	}

	u := *s.base
	q := u.Query()
	q.Set("amount", units.Dec())
	q.Set("to", o.Recipient)
	q.Set("user_id", strconv.FormatInt(o.UserID, 10))
	q.Set("token", o.Token)
	if o.Network != "" {
		q.Set("network", o.Network)
	}
	if o.Tag != "" {
		q.Set("tag", o.Tag)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// BaseUnits converts a decimal amount to integer base units (amount × 10^decimals), truncating
// anything below one unit. The amount is read through its shortest decimal form so 0.1 TON is
// exactly 100000000 nanoton.
func BaseUnits(amount float64, decimals int) (*uint256.Int, error) {
	if amount < 0 {
		return nil, fmt.Errorf("negative amount %v", amount)
	}

	r, ok := new(big.Rat).SetString(strconv.FormatFloat(amount, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("amount %v is not a finite number", amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	units := new(big.Int).Quo(r.Num(), r.Denom())
	out, overflow := uint256.FromBig(units)
	if overflow {
		return nil, ErrAmountOverflow
	}

	return out, nil
}

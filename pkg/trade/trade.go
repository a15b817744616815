/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package trade

import (
	"fmt"
	"sync"

	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/brianvoe/gofakeit/v7"
)

// Trade is the record the scenario drivers write.
type Trade struct {
	ID     string `json:"id"`
	CUSIP  string `json:"cusip"`
	Shares int    `json:"shares"`
	Price  string `json:"price"` // decimal with two fraction digits
}

func (t Trade) Document() (iface.Document, error) {
	return iface.Normalize(t)
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade(id=%v, cusip=%v, shares=%v, price=%v)", t.ID, t.CUSIP, t.Shares, t.Price)
}

// Generator produces random trades. It is safe for concurrent use.
type Generator struct {
	mut   sync.Mutex
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

func (g *Generator) Trade(id string) Trade {
	g.mut.Lock()
	defer g.mut.Unlock()
	cents := g.faker.Number(0, 99999)
	return Trade{
		ID:     id,
		CUSIP:  g.cusip(),
		Shares: g.faker.Number(0, 99),
		Price:  fmt.Sprintf("%d.%02d", cents/100, cents%100),
	}
}

func (g *Generator) CUSIP() string {
	g.mut.Lock()
	defer g.mut.Unlock()
	return g.cusip()
}

const cusipAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (g *Generator) cusip() string {
	b := make([]byte, 8, 9)
	for i := range b {
		b[i] = cusipAlphabet[g.faker.Number(0, len(cusipAlphabet)-1)]
	}
	return string(append(b, cusipCheckDigit(b)))
}

func cusipValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == '*':
		return 36, true
	case c == '@':
		return 37, true
	case c == '#':
		return 38, true
	}
	return 0, false
}

// cusipCheckDigit computes the ninth character from the first eight. Input must be valid.
func cusipCheckDigit(b []byte) byte {
	sum := 0
	for i := 0; i < 8; i++ {
		v, _ := cusipValue(b[i])
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	return byte('0' + (10-sum%10)%10)
}

// ValidCUSIP checks the length, alphabet and check digit.
func ValidCUSIP(s string) bool {
	if len(s) != 9 {
		return false
	}
	for i := 0; i < 8; i++ {
		if _, ok := cusipValue(s[i]); !ok {
			return false
		}
	}
	return s[8] == cusipCheckDigit([]byte(s[:8]))
}

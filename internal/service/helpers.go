package service

import (
	"context"
	"errors"
	"time"

	"vestipos/internal/bizerr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FormatoFecha is the wire format for every calendar date in the API.
const FormatoFecha = "2006-01-02"

// epsilonSaldo is the tolerance under which a saldo counts as cancelado.
// Decimal arithmetic keeps balances exact; the epsilon only absorbs rounding
// in prices loaded from the legacy import.
var epsilonSaldo = decimal.NewFromFloat(0.01)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound translates gorm's record-not-found into a business rejection with
// a domain message; any other error passes through untouched.
func notFound(err error, mensaje string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return bizerr.New(bizerr.NotFound, mensaje)
	}
	return err
}

// parseFecha parses a YYYY-MM-DD date into midnight UTC.
func parseFecha(s string) (time.Time, error) {
	t, err := time.Parse(FormatoFecha, s)
	if err != nil {
		return time.Time{}, bizerr.New(bizerr.InvalidArgument, "fecha inválida: "+s+" (se espera YYYY-MM-DD)")
	}
	return t, nil
}

func parseFechaOpcional(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseFecha(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// hoy returns today truncated to a calendar date in UTC.
func hoy() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func fechaStr(t time.Time) string { return t.Format(FormatoFecha) }

func fechaPtrStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(FormatoFecha)
	return &s
}

func timestampPtrStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

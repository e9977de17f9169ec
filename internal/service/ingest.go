package service

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
)

// IngestService handles CSV imports of bank statements.
type IngestService struct {
	Transactions *repository.TransactionRepo
}

// IngestResult summarizes one import.
type IngestResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImportCSV ingests rows of: date, amount, description, counterparty.
// Amounts are dollars with optional minus; negative is an expense. Re-imports
// are deduplicated by an import hash over the row's identity fields; rows
// whose hash already exists are skipped, not errors.
func (s *IngestService) ImportCSV(ctx context.Context, ownerID string, r io.Reader, tz *time.Location) (IngestResult, error) {
	if ownerID == "" {
		return IngestResult{}, errs.ErrUnauthorized
	}
	if tz == nil {
		tz = time.Local
	}
	res := IngestResult{}
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if len(rec) < 4 {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: expected 4 columns (date, amount, description, counterparty)", line))
			continue
		}
		date, err := parseLocalDate(rec[0], tz)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d date: %w", line, err))
			continue
		}
		amountCents, err := dollarsToCents(rec[1])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d amount: %w", line, err))
			continue
		}
		desc := strings.TrimSpace(rec[2])
		party := strings.TrimSpace(rec[3])

		hash := importHash(ownerID, date.Format(time.DateOnly), amountCents, desc, party)
		exists, err := s.Transactions.ImportHashExists(ctx, ownerID, hash)
		if err != nil {
			return res, fmt.Errorf("line %d dedup check: %w", line, err)
		}
		if exists {
			res.Skipped++
			continue
		}

		t := repository.Transaction{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Date:        date,
			AmountCents: amountCents,
			Description: desc,
			RawParty:    party,
			Status:      repository.StatusUnreconciled,
			Source:      repository.SourceCSV,
			ImportHash:  &hash,
		}
		if err := s.Transactions.Insert(ctx, t); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				res.Skipped++
				continue
			}
			res.Errors = append(res.Errors, fmt.Errorf("line %d insert: %w", line, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

// dollarsToCents parses a dollar amount exactly, without float rounding.
func dollarsToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func parseLocalDate(s string, tz *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2/1/2006", "02/01/2006", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, tz); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func importHash(parts ...interface{}) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v|", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

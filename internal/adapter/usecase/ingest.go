package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// UploadLeads ingests a CSV of recipients for one campaign. This is
// deduplication layer 1: addresses are normalized, rows without an email
// are dropped and duplicates within the upload collapse to their first
// occurrence, so the ledger only ever sees one entry per (campaign,
// email). Re-uploading is idempotent; existing ledger entries keep their
// state. Uploading into a completed campaign is rejected.
func (u *CampaignUseCase) UploadLeads(ctx context.Context, campaignID uuid.UUID, r io.Reader) (*port.IngestResult, error) {
	c, err := u.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.StatusCompleted {
		return nil, errors.New("campaign is completed")
	}

	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	headers, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	emailIdx := findEmailColumn(headers)
	if emailIdx < 0 {
		return nil, errors.New("no email column found")
	}

	// positions continue after any previously ingested rows so source
	// order is stable across uploads
	prog, err := u.ledger.Progress(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	pos := prog.Total

	res := &port.IngestResult{}
	seen := make(map[string]struct{})
	var records []domain.RecipientRecord

	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		res.Rows++

		var email string
		if emailIdx < len(row) {
			email = domain.NormalizeEmail(row[emailIdx])
		}
		if email == "" {
			res.Emailless++
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				fields[h] = row[i]
			}
		}
		records = append(records, domain.RecipientRecord{
			CampaignID: campaignID,
			Email:      email,
			Position:   pos,
			Fields:     fields,
			State:      domain.RecipientUnseen,
		})
		pos++
	}
	res.Unique = len(records)

	if len(records) > 0 {
		res.Inserted, err = u.ledger.InsertRecipients(ctx, records)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// findEmailColumn locates the address column: an exact "email" header
// wins, then "emails", then the first header containing "email".
func findEmailColumn(headers []string) int {
	contains := -1
	for i, h := range headers {
		switch l := strings.ToLower(strings.TrimSpace(h)); {
		case l == "email":
			return i
		case l == "emails":
			if contains < 0 {
				contains = i
			}
		case strings.Contains(l, "email"):
			if contains < 0 {
				contains = i
			}
		}
	}
	return contains
}

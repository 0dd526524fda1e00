package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/internal/leads/transport"
	"leadcall_backend/platform/apperr"
	"leadcall_backend/platform/phone"
)

// Archiver stores an export snapshot in object storage.
type Archiver interface {
	Bucket() string
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (string, error)
}

// exportBatchSize pages the full table during exports.
const exportBatchSize = 500

var csvHeader = []string{"name", "phone", "email", "course_interest"}

// ImportCSV reads leads from a CSV stream with a name,phone,email,
// course_interest header. Rows are imported independently: a bad or
// duplicate row is reported in the result and the rest of the file still
// lands.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (transport.ImportResultResponse, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return transport.ImportResultResponse{}, apperr.Validation("csv file is empty or unreadable")
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return transport.ImportResultResponse{}, apperr.Validation(err.Error())
	}

	var result transport.ImportResultResponse
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		params, err := rowToParams(record, cols)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if _, err := s.repo.Create(ctx, params); err != nil {
			result.Skipped++
			if errors.Is(err, repository.ErrDuplicate) {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: duplicate phone or email", line))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			}
			continue
		}
		result.Imported++
	}

	s.log.Info("csv import finished", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

type columns struct {
	name, phone, email, course int
}

func columnIndexes(header []string) (columns, error) {
	cols := columns{name: -1, phone: -1, email: -1, course: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "name":
			cols.name = i
		case "phone":
			cols.phone = i
		case "email":
			cols.email = i
		case "course_interest":
			cols.course = i
		}
	}
	if cols.name < 0 || cols.phone < 0 || cols.email < 0 {
		return columns{}, errors.New("csv header must contain name, phone and email columns")
	}
	return cols, nil
}

func rowToParams(record []string, cols columns) (repository.CreateLeadParams, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	params := repository.CreateLeadParams{
		Name:  field(cols.name),
		Phone: phone.NormalizeE164(field(cols.phone)),
		Email: strings.ToLower(field(cols.email)),
	}
	if params.Name == "" || params.Phone == "" || params.Email == "" {
		return repository.CreateLeadParams{}, errors.New("name, phone and email are required")
	}
	if course := field(cols.course); course != "" {
		params.CourseInterest = &course
	}
	return params, nil
}

// ExportCSV streams every lead as CSV and returns the row count.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	record := append(append([]string{}, csvHeader...), "status", "attempts", "interest_score")
	if err := writer.Write(record); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to write export", err)
	}

	count := 0
	err := s.forEachLead(ctx, func(lead repository.Lead) error {
		course := ""
		if lead.CourseInterest != nil {
			course = *lead.CourseInterest
		}
		count++
		return writer.Write([]string{
			lead.Name, lead.Phone, lead.Email, course,
			string(lead.Status), strconv.Itoa(lead.Attempts), strconv.Itoa(lead.InterestScore),
		})
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to write export", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to write export", err)
	}
	return count, nil
}

// ExportJSON streams every lead as a JSON array and returns the count.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) (int, error) {
	var leads []transport.LeadResponse
	err := s.forEachLead(ctx, func(lead repository.Lead) error {
		leads = append(leads, transport.ToLeadResponse(lead))
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to collect export", err)
	}
	if leads == nil {
		leads = []transport.LeadResponse{}
	}

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(leads); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to write export", err)
	}
	return len(leads), nil
}

// ArchiveExport uploads a CSV snapshot of the pipeline to object storage.
func (s *Service) ArchiveExport(ctx context.Context, archiver Archiver) (transport.ArchiveResponse, error) {
	if archiver == nil {
		return transport.ArchiveResponse{}, apperr.Unavailable("export archiving is not configured")
	}

	var buf bytes.Buffer
	count, err := s.ExportCSV(ctx, &buf)
	if err != nil {
		return transport.ArchiveResponse{}, err
	}

	if err := archiver.EnsureBucket(ctx); err != nil {
		return transport.ArchiveResponse{}, apperr.Wrap(apperr.KindUnavailable, "export storage unavailable", err)
	}

	key, err := archiver.Upload(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv")
	if err != nil {
		return transport.ArchiveResponse{}, apperr.Wrap(apperr.KindUnavailable, "failed to upload export snapshot", err)
	}

	s.log.Info("export snapshot archived", "object", key, "leads", count)
	return transport.ArchiveResponse{
		Bucket: archiver.Bucket(),
		Object: key,
		Leads:  count,
	}, nil
}

func (s *Service) forEachLead(ctx context.Context, fn func(repository.Lead) error) error {
	offset := 0
	for {
		leads, err := s.repo.List(ctx, repository.ListParams{Limit: exportBatchSize, Offset: offset})
		if err != nil {
			return err
		}
		for _, lead := range leads {
			if err := fn(lead); err != nil {
				return err
			}
		}
		if len(leads) < exportBatchSize {
			return nil
		}
		offset += exportBatchSize
	}
}

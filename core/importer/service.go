package importer

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/user"
)

// DefaultSampleSize is the number of previewed rows when none is configured.
const DefaultSampleSize = 5

type (
	ValidateResponse struct {
		OK                bool       `json:"ok"`
		Totals            Totals     `json:"totals"`
		Sample            []Sample   `json:"sample,omitempty"`
		Errors            []RowError `json:"errors"`
		NormalizedHeaders []string   `json:"normalizedHeaders"`
	}

	CommitResponse struct {
		OK         bool       `json:"ok"`
		Inserted   Counts     `json:"inserted"`
		Updated    Counts     `json:"updated"`
		Errors     []RowError `json:"errors"`
		DurationMs int64      `json:"durationMs"`
	}

	// CommitFailure is logged when the store refuses a validated file.
	CommitFailure struct {
		File   string
		Rows   int
		Errors []RowError
	}

	// InvalidFileError rejects a commit whose file does not validate.
	InvalidFileError struct {
		Errors []RowError
	}

	// summaryData feeds the import_summary email.
	summaryData struct {
		Name        string
		FileName    string
		Groups      countPair
		Areas       countPair
		Subareas    countPair
		Disciplines countPair
	}

	countPair struct {
		Created, Updated int
	}
)

func (e InvalidFileError) Error() string { return "Arquivo contém erros de validação" }

// InputErrorResponse is the validate payload of a file that could not be read or parsed.
func InputErrorResponse(err error) ValidateResponse {
	return ValidateResponse{
		Errors:            []RowError{{Row: 0, Field: "file", Message: err.Error()}},
		NormalizedHeaders: []string{},
	}
}

// FailedCommitResponse is the commit payload of a file that could not be committed.
func FailedCommitResponse(err error, started time.Time) CommitResponse {
	return CommitResponse{
		Errors:     []RowError{{Row: 0, Message: err.Error()}},
		DurationMs: time.Since(started).Milliseconds(),
	}
}

type Service struct {
	committer  *Committer
	mailSvc    core.EmailService
	logger     core.Logger
	appName    string
	sampleSize int
	maxSize    int64
	now        func() time.Time
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	svc := &Service{
		committer:  NewCommitter(repo),
		mailSvc:    mailSvc,
		logger:     logger,
		appName:    conf.AppName,
		sampleSize: conf.Import.SampleSize,
		maxSize:    conf.Import.MaxFileSize,
		now:        time.Now,
	}
	if svc.sampleSize <= 0 {
		svc.sampleSize = DefaultSampleSize
	}
	if svc.maxSize <= 0 {
		svc.maxSize = DefaultMaxFileSize
	}
	return svc
}

// MaxFileSize is the upload ceiling in bytes.
func (svc *Service) MaxFileSize() int64 { return svc.maxSize }

// Validate is the dry run: parse, validate and preview without touching the store.
func (svc *Service) Validate(fi FileInfo) (ValidateResponse, error) {
	pf, err := Parse(fi)
	if err != nil {
		return InputErrorResponse(err), err
	}
	res := Validate(pf)
	observeValidation(res)

	resp := ValidateResponse{
		OK:                res.OK,
		Totals:            res.Totals,
		Errors:            res.Errors,
		NormalizedHeaders: pf.Headers,
	}
	if len(res.NormalizedRows) > 0 {
		resp.Sample = GenerateSample(res.NormalizedRows, svc.sampleSize)
	}
	return resp, nil
}

// Commit parses and validates fi like Validate, then writes it. A file with any validation error is
// refused with an InvalidFileError. Store failures come back in the response errors.
// The requester, when it has an email, is mailed a summary of a successful commit.
func (svc *Service) Commit(ctx context.Context, fi FileInfo, requester user.User) (CommitResponse, error) {
	started := time.Now()

	pf, err := Parse(fi)
	if err != nil {
		return FailedCommitResponse(err, started), err
	}
	res := Validate(pf)
	observeValidation(res)
	if !res.OK {
		commitsTotal.WithLabelValues("invalid").Inc()
		return CommitResponse{}, &InvalidFileError{Errors: res.Errors}
	}

	writeStarted := svc.now()
	cres := svc.committer.Commit(ctx, res.NormalizedRows)
	commitDuration.Observe(svc.now().Sub(writeStarted).Seconds())

	resp := CommitResponse{
		OK:         cres.OK(),
		Inserted:   cres.Inserted,
		Updated:    cres.Updated,
		Errors:     cres.Errors,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if !resp.OK {
		commitsTotal.WithLabelValues("failed").Inc()
		svc.logger.Error(fmt.Sprintf("import commit of %q failed", fi.Name),
			CommitFailure{File: fi.Name, Rows: len(res.NormalizedRows), Errors: cres.Errors}, requester)
		return resp, nil
	}

	commitsTotal.WithLabelValues("ok").Inc()
	rowsTotal.WithLabelValues("committed").Add(float64(len(res.NormalizedRows)))
	svc.notify(mail.Address{Name: requester.Name, Address: requester.Email}, fi.Name, resp)
	return resp, nil
}

func (svc *Service) notify(to mail.Address, fileName string, resp CommitResponse) {
	if to.Address == "" || svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Importação concluída: " + fileName,
		Categories:   []string{"import", "import-summary"},
		TemplateName: "import_summary",
		TemplateData: summaryData{
			Name:        to.Name,
			FileName:    fileName,
			Groups:      countPair{resp.Inserted.Grupos, resp.Updated.Grupos},
			Areas:       countPair{resp.Inserted.Areas, resp.Updated.Areas},
			Subareas:    countPair{resp.Inserted.Subareas, resp.Updated.Subareas},
			Disciplines: countPair{resp.Inserted.Disciplinas, resp.Updated.Disciplinas},
		},
	})
}

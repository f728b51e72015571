package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/sampling"
	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
	"github.com/JaimeStill/concord/pkg/storage"
)

// Records is the part of the ledger the corpus endpoints need.
type Records interface {
	Load(ctx context.Context, records []corpus.Record) (int, error)
	Records(ctx context.Context) ([]corpus.Record, error)
}

// UploadResult reports how an uploaded corpus was ingested.
type UploadResult struct {
	Stats   *corpus.Stats `json:"stats,omitempty"`
	Records int           `json:"records"`
	Added   int           `json:"added"`
}

// SplitCommand requests a partition of the loaded sentences.
type SplitCommand struct {
	Subsets []sampling.Request `json:"subsets"`
	Seed    *uint64            `json:"seed,omitempty"`
	Export  bool               `json:"export"`
}

// SplitResult lists the ids drawn into each subset, including the residual.
type SplitResult struct {
	Seed    uint64           `json:"seed"`
	Summary map[string]int   `json:"summary"`
	Subsets map[string][]int `json:"subsets"`
	Exports []string         `json:"exports,omitempty"`
}

type corpusHandler struct {
	records    Records
	store      storage.System
	cfg        config.CorpusConfig
	logger     *slog.Logger
	pagination pagination.Config
	maxUpload  int64
}

func newCorpusHandler(
	records Records,
	store storage.System,
	cfg config.CorpusConfig,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUpload int64,
) *corpusHandler {
	return &corpusHandler{
		records:    records,
		store:      store,
		cfg:        cfg,
		logger:     logger.With("handler", "corpus"),
		pagination: pagination,
		maxUpload:  maxUpload,
	}
}

func (h *corpusHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/corpus",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "POST", Pattern: "", Handler: h.upload},
			{Method: "GET", Pattern: "/duplicates", Handler: h.duplicates},
			{Method: "GET", Pattern: "/export", Handler: h.export},
			{Method: "POST", Pattern: "/split", Handler: h.split},
		},
	}
}

func mapCorpusStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrDisabled),
		errors.Is(err, storage.ErrInvalidKey):
		return storage.MapHTTPStatus(err)
	case errors.Is(err, sampling.ErrOutOfRange),
		errors.Is(err, sampling.ErrDuplicateName),
		errors.Is(err, sampling.ErrEmptyName),
		errors.Is(err, sampling.ErrUnknownSubset):
		return sampling.MapHTTPStatus(err)
	}
	if status := corpus.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return ledger.MapHTTPStatus(err)
}

// upload ingests a concordance export (text/plain) or a sample CSV (text/csv)
// and loads its sentences into the ledger. Ids already present are kept.
func (h *corpusHandler) upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
		return
	}

	result := UploadResult{}
	var records []corpus.Record

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		records, err = corpus.ReadCSV(bytes.NewReader(body))
		if err == nil {
			_, err = corpus.FromRecords(records)
		}
	} else {
		policy := h.cfg.Policy()
		if v := r.URL.Query().Get("duplicates"); v != "" {
			policy, err = corpus.ParsePolicy(v)
		}
		if err == nil {
			var c *corpus.Corpus
			var stats corpus.Stats
			c, stats, err = corpus.Read(bytes.NewReader(body), corpus.Options{Duplicates: policy})
			if err == nil && c.Len() == 0 {
				err = corpus.ErrEmpty
			}
			if err == nil {
				records = c.Records()
				result.Stats = &stats
			}
		}
	}
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	added, err := h.records.Load(r.Context(), records)
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	result.Records = len(records)
	result.Added = added
	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *corpusHandler) load(ctx context.Context) (*corpus.Corpus, error) {
	records, err := h.records.Records(ctx)
	if err != nil {
		return nil, err
	}
	return corpus.FromRecords(records)
}

// list pages the loaded sentences; search filters by case-insensitive text match.
func (h *corpusHandler) list(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	term := ""
	if page.Search != nil {
		term = *page.Search
	}
	handlers.RespondJSON(w, http.StatusOK, pagination.Slice(c.Search(term), page))
}

func (h *corpusHandler) duplicates(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	groups := c.Duplicates()
	if groups == nil {
		groups = [][]int{}
	}
	handlers.RespondJSON(w, http.StatusOK, groups)
}

func (h *corpusHandler) export(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.Records(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="corpus.csv"`)
	if err := corpus.WriteCSV(w, records); err != nil {
		h.logger.Error("corpus export failed", "error", err)
	}
}

// split partitions the loaded sentences. With export set, every subset and the
// residual are written as CSV files under the configured storage prefix.
func (h *corpusHandler) split(w http.ResponseWriter, r *http.Request) {
	var cmd SplitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	seed := h.cfg.SeedValue()
	if cmd.Seed != nil {
		seed = *cmd.Seed
	}

	records, err := h.records.Records(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	p, err := sampling.Split(records, cmd.Subsets, seed)
	if err != nil {
		handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
		return
	}

	names := append(p.Names(), sampling.ResidualName)
	result := SplitResult{
		Seed:    seed,
		Summary: p.Summary(),
		Subsets: make(map[string][]int, len(names)),
	}
	for _, name := range names {
		ids, _ := p.IDs(name)
		result.Subsets[name] = ids
	}

	if cmd.Export {
		keys, err := h.exportPartition(r.Context(), p, names)
		if err != nil {
			handlers.RespondError(w, h.logger, mapCorpusStatus(err), err)
			return
		}
		result.Exports = keys
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *corpusHandler) exportPartition(ctx context.Context, p *sampling.Partition, names []string) ([]string, error) {
	if h.store == nil {
		return nil, storage.ErrDisabled
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		recs, err := p.Subset(name)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := corpus.WriteCSV(&buf, recs); err != nil {
			return nil, err
		}

		key := fmt.Sprintf("%s%s.csv", h.cfg.ExportPrefix, name)
		if err := h.store.Upload(ctx, key, &buf, "text/csv"); err != nil {
			return nil, fmt.Errorf("export %s: %w", name, err)
		}
		keys = append(keys, key)
	}

	h.logger.Info("partition exported", "subsets", len(keys))
	return keys, nil
}

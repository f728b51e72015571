package api

import (
	"fmt"

	"github.com/JaimeStill/concord/internal/agreement"
	"github.com/JaimeStill/concord/internal/classifications"
	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/discrepancy"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/session"
	"github.com/JaimeStill/concord/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Ledger          ledger.System
	Sessions        session.System
	Classifications classifications.System
	Agreement       *agreement.Handler
	Discrepancies   *discrepancy.Handler
	Corpus          *corpusHandler
	Exports         *exportsHandler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	factory, err := classifier.NewFactory(runtime.Classifier.Settings(), runtime.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("classifier init failed: %w", err)
	}

	wf := &workflow.Runtime{
		Ledger:        runtime.Ledger,
		Classifiers:   factory,
		PromptVersion: runtime.Classifier.PromptVersion,
		Workers:       runtime.Classifier.Workers,
		Observer:      runtime.Metrics,
		Logger:        runtime.Logger,
	}

	return &Domain{
		Ledger: runtime.Ledger,
		Sessions: session.New(
			runtime.Ledger,
			runtime.Corpus.SeedValue(),
			runtime.Logger,
		),
		Classifications: classifications.New(
			wf,
			runtime.Classifier.History,
			runtime.Logger,
			runtime.Pagination,
		),
		Agreement: agreement.NewHandler(
			runtime.Ledger,
			runtime.Taxonomy,
			runtime.Logger,
		),
		Discrepancies: discrepancy.NewHandler(runtime.Ledger, runtime.Logger),
		Corpus: newCorpusHandler(
			runtime.Ledger,
			runtime.Storage,
			runtime.Corpus,
			runtime.Logger,
			runtime.Pagination,
			runtime.MaxUploadSize,
		),
		Exports: newExportsHandler(runtime.Storage, runtime.Logger),
	}, nil
}

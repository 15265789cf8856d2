package cmd

import (
	"encoding/json"
	"os"

	"samplevault/internal/config"
	"samplevault/internal/embed"
	"samplevault/internal/errors"
	"samplevault/internal/runner"
	"samplevault/internal/selection"
	"samplevault/internal/store"
	"samplevault/internal/translate"
	"samplevault/internal/ui"
	"samplevault/internal/worker"
)

// env bundles everything a job command needs: config, open store and a
// progress renderer.
type env struct {
	cfg      *config.Config
	store    *store.Store
	renderer ui.Renderer
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Library.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:      cfg,
		store:    st,
		renderer: ui.NewRenderer(os.Stdout),
	}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}

func (e *env) runner() *runner.Runner {
	return runner.New(e.store, e.cfg.Jobs.BatchSize, e.renderer)
}

// jobParams is the worker-specific job payload persisted with the job
// record, so a resume can rebuild the worker.
type jobParams struct {
	Labels     []string `json:"labels,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
	TopK       int      `json:"top_k,omitempty"`
	TargetLang string   `json:"target_lang,omitempty"`
}

func encodeParams(p jobParams) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.InternalError("encode job params", err)
	}
	return string(data), nil
}

func decodeParams(raw string) (jobParams, error) {
	var p jobParams
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, errors.New(errors.ErrCodeInvalidParams, "decode job params", err)
	}
	return p, nil
}

// buildWorker rebuilds the worker for a job record, for both fresh runs
// and resumes.
func (e *env) buildWorker(job *store.Job) (runner.Worker, error) {
	params, err := decodeParams(job.Params)
	if err != nil {
		return nil, err
	}

	switch job.Type {
	case store.JobTypeIndex:
		embedder, err := embed.New(e.cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		return worker.NewIndexWorker(e.store, embedder,
			e.cfg.Index.Dir, e.cfg.Index.BaseName, e.cfg.Index.ChunkSize, job.ID)

	case store.JobTypeTag:
		embedder, err := embed.New(e.cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		translator, err := translate.New(e.cfg.Translation)
		if err != nil {
			return nil, err
		}
		return worker.NewTagWorker(e.store, embedder, translator, params.TargetLang,
			params.Labels, params.Threshold, params.TopK,
			e.cfg.Index.Dir, e.cfg.Index.BaseName)

	case store.JobTypeTranslate:
		translator, err := translate.New(e.cfg.Translation)
		if err != nil {
			return nil, err
		}
		return worker.NewTranslateWorker(translator, params.TargetLang), nil

	case store.JobTypeApply:
		// The translator is only needed for its version string here.
		translator, err := translate.New(e.cfg.Translation)
		if err != nil {
			return nil, err
		}
		version := worker.NameVersion(translator, params.TargetLang)
		_ = translator.Close()
		return worker.NewApplyWorker(worker.OSRenamer{}, version), nil
	}
	return nil, errors.New(errors.ErrCodeUnknownJobType, "unknown job type "+string(job.Type), nil)
}

// selectionFromFlags turns the shared --files/--folders flags into a
// selection. Both empty means the whole library.
func selectionFromFlags(files, folders []string) (*selection.Selection, error) {
	switch {
	case len(files) > 0 && len(folders) > 0:
		return nil, errors.New(errors.ErrCodeInvalidSelection,
			"--files and --folders are mutually exclusive", nil)
	case len(files) > 0:
		return selection.ForFiles(files), nil
	case len(folders) > 0:
		return selection.ForFolders(folders), nil
	}
	return selection.All(), nil
}

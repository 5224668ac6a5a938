package core

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/logger"
	"github.com/jrlabs/appforge/internal/store"
)

// ExportApps returns every app, code included, for a JSON export.
func ExportApps(ctx context.Context, st store.AppStore) ([]store.App, error) {
	return st.List(ctx, store.Filter{}, store.Sort{})
}

// ImportApps ingests a JSON array of app-shaped objects (a single object
// is accepted too). Incoming ids are never trusted: every imported app is
// minted a fresh id and a fresh initial Version, so imports can never
// overwrite existing local data.
func ImportApps(ctx context.Context, st store.AppStore, raw []byte) (int, error) {
	var apps []store.App
	if err := json.Unmarshal(raw, &apps); err != nil {
		var single store.App
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return 0, apperr.Wrap(err, apperr.CodeValidation, "import payload is not valid app JSON")
		}
		apps = []store.App{single}
	}

	imported := 0
	for _, a := range apps {
		draft := store.AppDraft{
			Name:      a.Name,
			Title:     a.Title,
			Prompt:    a.Prompt,
			Code:      a.Code,
			ModelUsed: a.ModelUsed,
			Note:      "Imported",
		}
		if _, err := st.Create(ctx, draft); err != nil {
			logger.L().Warn("skipping unimportable app", zap.String("name", a.Name), zap.Error(err))
			continue
		}
		imported++
	}
	return imported, nil
}

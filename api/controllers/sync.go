package controllers

import (
	"net/http"

	"github.com/angelmondragon/events-aggregator/api/responses"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

type syncTrigger interface {
	Trigger() error
}

// SyncTrigger requests an immediate reconciliation. The run happens in the
// background; a run already in flight absorbs the request.
func SyncTrigger(svc syncTrigger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Trigger(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "trigger sync"))
			return
		}
		logg.Info(r.Context(), "sync.triggered")
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

package framesim

import (
	"io"
	"net/http"
	"sync/atomic"

	"github.com/okian/bodytrack/internal/domain/document"
	"github.com/okian/bodytrack/pkg/logger"
)

const maxDocumentBytes = 1 << 20

// Ingest is a stand-in ingestion endpoint. It accepts snapshot documents,
// checks that they parse, and logs what arrived.
type Ingest struct {
	logger logger.Logger

	received atomic.Uint64
	rejected atomic.Uint64
}

// NewIngest creates an Ingest handler. A nil logger uses the global one.
func NewIngest(l logger.Logger) *Ingest {
	if l == nil {
		l = logger.Get().Named("ingest")
	}
	return &Ingest{logger: l}
}

// ServeHTTP implements http.Handler.
func (i *Ingest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		i.rejected.Add(1)
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	snap, err := document.Decode(body)
	if err != nil {
		i.rejected.Add(1)
		i.logger.Warn(r.Context(), "rejected document", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	i.received.Add(1)
	i.logger.Info(r.Context(), "document received",
		logger.Int64("timestamp", snap.Timestamp),
		logger.Int("bodies", len(snap.Bodies)),
		logger.String("requestId", r.Header.Get("X-Request-ID")),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Received returns the number of documents accepted.
func (i *Ingest) Received() uint64 { return i.received.Load() }

// Rejected returns the number of requests whose body did not parse.
func (i *Ingest) Rejected() uint64 { return i.rejected.Load() }

package objectstore

import (
	"errors"
	"net/http"

	"deedblock/internal/transport/http/shared"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
)

// DownloadHandler serves stored objects against their signed URLs. The token
// is the sole authority: its path claim names the object, so tampering with
// the URL path cannot reach a different object. No bearer auth here; the
// signed token is the credential.
func DownloadHandler(adapter Adapter, signer *URLSigner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing signed url token"))
			return
		}
		path, err := signer.Verify(token)
		if err != nil {
			shared.WriteError(w, err)
			return
		}

		data, err := adapter.Download(r.Context(), path)
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "object not found"))
			return
		}
		if err != nil {
			shared.WriteError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "private, no-store")
		_, _ = w.Write(data)
	})
}

package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"

	"github.com/gorilla/mux"
)

type MiscHandler struct {
	versionInfo string
	// imagesRoot is set when the images are kept on the local disk
	imagesRoot string
}

func NewMiscHandler(versionInfo, imagesRoot string) *MiscHandler {
	return &MiscHandler{
		versionInfo: versionInfo,
		imagesRoot:  imagesRoot,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (handler *MiscHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: handler.versionInfo,
	})
}

// HandleImage serves /images/{key...} from the disk blob store root.
func (handler *MiscHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.images.get")
	defer span.End()

	if handler.imagesRoot == "" {
		http.NotFound(w, r)
		return
	}

	key := mux.Vars(r)["key"]
	cleaned := filepath.Clean("/" + key)
	if key == "" || strings.Contains(key, "..") || cleaned == "/" {
		http.Error(w, "invalid image key", http.StatusBadRequest)
		return
	}

	path := filepath.Join(handler.imagesRoot, filepath.FromSlash(cleaned))
	exists, err := pkg.PathExists(path, false)
	if err != nil || !exists {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", pkg.ContentType.JPEG)
	http.ServeFile(w, r, path)
}

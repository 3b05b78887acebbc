/*Package camera exposes manual control of a camera over HTTP.

Each interface from the camera package has an HTTP<Name> function that adds its
routes to a route table, so a wrapper may be assembled from only what a device
supports.  HTTPCamera assembles all of them.
*/
package camera

import (
	"encoding/json"
	"errors"
	"go/types"
	"io"
	"net/http"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/generichttp"
)

// decodeOptional decodes a JSON body into v, treating an empty body as no input
func decodeOptional(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// HTTPSession injects the route that opens a new camera session
func HTTPSession(s camera.SessionStarter, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/session"}] = StartSession(s)
}

// StartSession opens a new session on a POST request
func StartSession(s camera.SessionStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.StartSession(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPSettings injects the settings route for a configurer
func HTTPSettings(c camera.Configurer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/settings"}] = ApplySettings(c)
}

// ApplySettings applies the exposure.Settings in the body of a POST request.
// Settings the camera rejects are a 422.
func ApplySettings(c camera.Configurer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := exposure.Settings{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = c.ApplySettings(s); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPPicture injects the route to take a picture
func HTTPPicture(p camera.PictureTaker, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/picture"}] = TakePicture(p)
}

// TakePicture triggers an exposure on a POST request.  The body may hold
// {"bool": true} to keep the image on the camera's card; without a body the
// image is transferred to the host.
func TakePicture(p camera.PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := generichttp.BoolT{}
		if err := decodeOptional(r, &b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := p.TakePicture(b.Bool); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPFocus injects the route to move the focus motor
func HTTPFocus(f camera.Focuser, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/focus"}] = generichttp.SetInt(f.AdjustFocus)
}

// HTTPDownload injects routes to count and download images on the card
func HTTPDownload(d camera.Downloader, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/images"}] = generichttp.GetInt(d.CountImages)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/images/download"}] = Download(d)
}

// DownloadRequest is the body of a download request
type DownloadRequest struct {
	Dir string `json:"dir"`
	Max int    `json:"max"`
}

// Download transfers the newest images on the card on a POST request and
// replies with their paths as {"files": [...]}
func Download(d camera.Downloader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := DownloadRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Dir == "" || req.Max <= 0 {
			http.Error(w, "dir and a positive max are required", http.StatusBadRequest)
			return
		}
		files, err := d.Download(req.Dir, req.Max)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if files == nil {
			files = []string{}
		}
		generichttp.WriteJSON(w, http.StatusOK, map[string][]string{"files": files})
	}
}

// HTTPCamera is an HTTP wrapper for manual control of a camera
type HTTPCamera struct {
	// RouteTable maps method, path pairs to http handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPCamera returns a new HTTPCamera with every camera route
func NewHTTPCamera(gw camera.Gateway) HTTPCamera {
	rt := generichttp.RouteTable{}
	HTTPSession(gw, rt)
	HTTPSettings(gw, rt)
	HTTPPicture(gw, rt)
	HTTPFocus(gw, rt)
	HTTPDownload(gw, rt)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/ping"}] = func(w http.ResponseWriter, r *http.Request) {
		hp := generichttp.HumanPayload{T: types.Bool, Bool: true}
		hp.EncodeAndRespond(w, r)
	}
	return HTTPCamera{RouteTable: rt}
}

// RT satisfies generichttp.HTTPer
func (h HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}

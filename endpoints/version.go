package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
	"github.com/oxxion/rtd-server/util/jsonutil"
)

const versionEndpointValueNotSet = "not-set"

type versionResponse struct {
	Revision string `json:"revision"`
	Version  string `json:"version"`
	// Modules lists the stages each enabled module provides hooks for.
	Modules map[string][]string `json:"modules"`
}

// NewVersionEndpoint returns the build version and revision of the binary along with the enabled modules.
func NewVersionEndpoint(version, revision string, modules map[string][]string) http.HandlerFunc {
	response, err := prepareVersionEndpointResponse(version, revision, modules)
	if err != nil {
		glog.Fatalf("error creating /version endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	}
}

func prepareVersionEndpointResponse(version, revision string, modules map[string][]string) (json.RawMessage, error) {
	if version == "" {
		version = versionEndpointValueNotSet
	}
	if revision == "" {
		revision = versionEndpointValueNotSet
	}
	if modules == nil {
		modules = map[string][]string{}
	}

	return jsonutil.Marshal(versionResponse{
		Revision: revision,
		Version:  version,
		Modules:  modules,
	})
}

package registry

import (
	"github.com/Gu1nness/jhack/internal/codec"
	"github.com/Gu1nness/jhack/internal/recorder"
)

// backendCalls is the stock set of model-backend calls worth
// memoizing. Hook-tool reads and writes go through these, so
// intercepting them covers the backend surface a charm touches during
// one event.
var backendCalls = []string{
	"relation_ids",
	"relation_list",
	"relation_remote_app_name",
	"relation_get",
	"update_relation_data",
	"relation_set",
	"config_get",
	"is_leader",
	"application_version_set",
	"resource_get",
	"status_get",
	"status_set",
	"storage_list",
	"storage_get",
	"storage_add",
	"action_get",
	"action_set",
	"action_log",
	"action_fail",
	"network_get",
	"add_metrics",
	"juju_log",
	"planned_units",
}

// DefaultSites returns the stock registry: every known backend call
// under the ModelBackend namespace with strict caching and json
// serialization on both sides.
func DefaultSites() []recorder.Site {
	sites := make([]recorder.Site, 0, len(backendCalls))
	for _, name := range backendCalls {
		sites = append(sites, recorder.Site{
			Namespace:  "ModelBackend",
			Name:       name,
			Policy:     recorder.PolicyStrict,
			Serializer: codec.DefaultPair,
		})
	}
	return sites
}

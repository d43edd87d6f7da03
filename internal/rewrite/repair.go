package rewrite

import "strings"

// registryRepairs fixes query strings damaged by an HTML parser that decoded
// "&reg" in "&registryLibrariesTopology" as the registered sign.
var registryRepairs = strings.NewReplacer(
	"®istryLibrariesTopology", "registryLibrariesTopology",
)

// registryJoins restores the "&" that the damaged form lost after a boolean
// parameter value.
var registryJoins = strings.NewReplacer(
	"falseregistryLibrariesTopology", "false&registryLibrariesTopology",
	"trueregistryLibrariesTopology", "true&registryLibrariesTopology",
)

// registryTail is the part of the parameter name that survives the
// corruption; the leading "reg" is lost to the registered sign.
const registryTail = "istryLibrariesTopology"

// RepairRegistryParam undoes the "&reg" entity corruption of the
// registryLibrariesTopology query parameter.
func RepairRegistryParam(s string) string {
	if !strings.Contains(s, registryTail) {
		return s
	}
	return registryJoins.Replace(registryRepairs.Replace(s))
}

// runtimeBundlePath identifies runtime bundles that are only served inside
// the platform's own runtime and answer 400 anywhere else.
const runtimeBundlePath = "siteassets.parastorage.com/pages/pages/thunderbolt"

// IsRuntimeBundle reports whether absURL points at a runtime bundle that
// must stay remote.
func IsRuntimeBundle(absURL string) bool {
	return strings.Contains(absURL, runtimeBundlePath)
}

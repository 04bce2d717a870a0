package modules

import (
	oxxionRtd "github.com/oxxion/rtd-server/modules/oxxion/rtd"
)

// builders returns mapping between module name and its builder
// vendor and module names are chosen based on the module directory name
func builders() ModuleBuilders {
	return ModuleBuilders{
		"oxxion": {
			"rtd": oxxionRtd.Builder,
		},
	}
}

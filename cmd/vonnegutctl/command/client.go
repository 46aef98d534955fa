package command

import (
	"github.com/evanmcc/vonnegut/adminclient"
)

// mustClient dials GlobalFlagsInstance.Endpoint or exits the process,
// mirroring cmd/vdlctl/command/util.go's MustClient.
func mustClient() *adminclient.Client {
	checkEndpoint()
	c, err := adminclient.NewClient(GlobalFlagsInstance.Endpoint, GlobalFlagsInstance.DialTimeout, GlobalFlagsInstance.CommandTimeout)
	if err != nil {
		exitWithError(exitError, err)
	}
	return c
}

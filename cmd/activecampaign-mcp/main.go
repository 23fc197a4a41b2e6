// activecampaign-mcp serves ActiveCampaign contact and tracking-log lookups
// as Model Context Protocol tools.
package main

import "github.com/mmarqueti/activecampaign-mcp-server/internal/cli"

func main() {
	cli.Execute()
}

/*
Package tablecast turns match text (team lines and player scores) into a rendered
table image by driving an external "paste text, get a table" web application.

tablecast does not draw tables. It tries a prioritized list of strategies against a
service whose contract is undocumented and unstable: undocumented HTTP endpoints first,
then a headless browser filling the page's input and capturing its output. The first
strategy returning a plausible image wins; when all of them fail the caller gets an
ordered report of what went wrong with each one.

# Usage

	cfg, err := config.Load("tablecast.yaml")
	if err != nil {
		log.Fatal(err)
	}

	r, err := tablecast.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	res, err := r.Render(ctx, "A - Red\nAlice 1500\nBob 1400")
	var failure *domain.Failure
	switch {
	case errors.As(err, &failure):
		fmt.Println(failure.Summary())
	case err != nil:
		log.Fatal(err)
	default:
		os.WriteFile("table.png", res.Image, 0o644)
	}

# Adapters

The same Renderer backs every inbound surface: the HTTP API (pkg/adapters/http), the
MCP tool server (pkg/adapters/mcp) and the chat command pipeline (pkg/chat) with its
Discord and Telegram delivery adapters. The tablecast command wires them from a
configuration file.
*/
package tablecast

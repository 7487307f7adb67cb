package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("compose_ad",
		mcp.WithPromptDescription("Guide through writing, linking and saving a new ad block"),
		mcp.WithArgument("zone",
			mcp.ArgumentDescription("Zone for the ad: top, middle or bottom"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("Ad copy"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("contact",
			mcp.ArgumentDescription("WhatsApp number, Telegram username or web address to link"),
		),
	), s.handleComposeAdPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_site",
		mcp.WithPromptDescription("Review every zone of a site for empty or unlinked ads"),
		mcp.WithArgument("site",
			mcp.ArgumentDescription("Site value as returned by list_sites"),
			mcp.RequiredArgument(),
		),
	), s.handleReviewSitePrompt)
}

func (s *Server) handleComposeAdPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	zone := req.Params.Arguments["zone"]
	text := req.Params.Arguments["text"]
	contact := req.Params.Arguments["contact"]
	link := "Skip linking."
	if contact != "" {
		link = fmt.Sprintf(`If the ad has an image, call attach_link on the block and answer its prompts: pick the platform matching "%s", then enter it. Otherwise skip linking.`, contact)
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Compose a %s ad", zone),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add a new ad to the %s zone of the active site. Follow these steps:

1. Use add_block with zone "%s" and note the returned key
2. Use set_content to write this copy as a single paragraph: %s
3. %s
4. Call save_zone for "%s". When it returns a running operation with a prompt, answer it with answer_prompt
5. Finish with get_view and confirm the block is persisted

Tools that ask questions return an operation; poll it with get_operation until it is no longer running.`, zone, zone, text, link, zone),
				},
			},
		},
	}, nil
}

func (s *Server) handleReviewSitePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	site := req.Params.Arguments["site"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review ads of %s", site),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review the ads of "%s":

1. Call switch_site with "%s"
2. For each zone in the returned view list blocks whose content is empty or has no link
3. Report the findings per zone without changing anything`, site, site),
				},
			},
		},
	}, nil
}

// Package anthropic is a typed client for the Anthropic Messages API.
//
// # Quick start
//
//	client, err := anthropic.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := client.Messages.Create(ctx, anthropic.MessageCreateParams{
//	    Model:     anthropic.ModelClaudeSonnet4_6,
//	    MaxTokens: 1024,
//	    Messages:  []anthropic.MessageParam{anthropic.UserText("Hello")},
//	})
//
// # Streaming
//
// [MessageService.Stream] returns a [MessageStream]. Read events with
// Next/Current, or fold them into the final [Message] with
// [MessageStream.Accumulate], which enforces the event order and returns a
// [core.StreamProtocolError] when the server breaks it.
//
// # Polymorphic payloads
//
// Content blocks, deltas, events, citations and other unions are sealed
// interfaces with one pointer type per variant. Tagged unions decode unknown
// "type" values into an Unknown variant that re-encodes to the exact bytes
// received, so new server features never break decoding:
//
//	for _, b := range msg.Content {
//	    switch b := b.(type) {
//	    case *anthropic.TextBlock:
//	        fmt.Print(b.Text)
//	    case *anthropic.ToolUseBlock:
//	        run(b.Name, b.Input)
//	    case *anthropic.UnknownBlock:
//	        // newer block type, b.Raw holds it
//	    }
//	}
//
// Untagged unions such as [ToolDefinition] and [MessageContent] document
// the order in which their variants are tried.
//
// # Backends
//
// Vertex AI, Bedrock and OAuth authentication are middleware; see the
// providers/vertex, providers/bedrock and providers/oauth packages.
package anthropic

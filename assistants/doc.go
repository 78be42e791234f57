// Package assistants provides the bounded tool-calling agent.
//
// An Agent keeps the conversation history, sends it to an llms.Model along
// with the tool catalog of a ToolRouter, and executes the tool calls the
// model asks for until the model answers with plain text or the iteration
// cap of the turn is reached.
//
//	agent := assistants.NewAgent(model, router,
//		assistants.WithMaxIterations(10),
//		assistants.WithCallback(assistants.NewPackageLoggerCallback(logger)),
//	)
//	answer, err := agent.Chat(ctx, "how much disk is free on web-1?")
package assistants

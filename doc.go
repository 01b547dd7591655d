/*
Package rapport is a dialogue-flow engine for social-communication practice.

A conversation is played in one of two modes. In static mode an authored graph
of steps is compiled into an immutable transition table and a Machine walks it
event by event, accumulating per-category scores. In dynamic mode an
Orchestrator asks a language model for each actor turn, has every user reply
scored and moves the conversation through its phases (introduction,
main_topic, wrap_up, completed). Hybrid mode seeds a generated conversation
from an authored graph.

# Usage

	g, err := rapport.CompileStepGraph(steps, "start")
	if err != nil {
		log.Fatal(err) // every authoring problem, at once
	}

	m, err := rapport.NewStaticMachine(ctx, g)
	if err != nil {
		log.Fatal(err)
	}
	m.Fire(ctx, "CHOOSE_1")
	fmt.Println(m.Context().Clarity)

Generated conversations share one generation client, which owns the response
cache and the rate-limit window:

	client := rapport.NewGenerationClient(openai.New(key))
	defer client.Close()

	o := rapport.NewOrchestrator(client, rapport.ConversationConfig{
		Persona:  domain.Persona{Name: "Sam"},
		Scenario: domain.Scenario{Title: "First day at school"},
	})
	if err := o.Start(ctx); err != nil {
		log.Fatal(err)
	}

Engine bundles the graph, client, result store, hooks and logger for hosts
such as the CLI and the HTTP server.
*/
package rapport

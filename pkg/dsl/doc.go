/*
Package dsl provides a fluent Go builder for authored dialogue graphs.

It is an alternative to YAML or JSON graph files, handy for tests, generated
content and IDE-checked authoring. The first step added is the root.

Example usage:

	b := dsl.New()

	b.Step("start").
		Says("Hey, do you have a minute to talk about the project?").
		Meta(domain.MetaPersonaName, "Alex").
		Option("sure", "Of course, what's up?").To("listen").Scores(domain.Empathy).
		Option("busy", "Not now.").To("end")

	b.Step("listen").Says("Thanks, I was worried about the deadline.")
	b.Step("end").Says("Okay, maybe later.")

	graph, err := rapport.LoadStepGraph(b.Loader())
*/
package dsl

package dsl

import "github.com/aretw0/rapport/pkg/domain"

// Sample builds a small graph used by "rapport example" and the tests: a
// coworker asks for help with a deadline the user cannot take on.
func Sample() *Builder {
	b := New()
	b.Step("start").
		Meta(domain.MetaPersonaName, "Jordan").
		Meta(domain.MetaPersonaRole, "a coworker on your team").
		Meta(domain.MetaScenarioTitle, "A request you cannot take on").
		Meta(domain.MetaScenarioObjective, "Decline politely while offering an alternative").
		Says("Hey! Could you take over my report? It's due Friday and I'm swamped.").
		Option("decline_kindly", "I'd like to help, but my week is full. Could we ask the lead?").
		To("alternative").Scores(domain.Assertiveness, domain.Empathy).
		Option("accept", "Sure, I'll figure it out.").
		To("overloaded").
		Option("refuse", "No. Not my problem.").
		To("tense").Scores(domain.Assertiveness)

	b.Step("alternative").
		Says("Oh, that makes sense. Do you think the lead would mind?").
		Option("reassure", "I think they'd rather know early. Want me to come with you?").
		To("thanks").Scores(domain.SocialAwareness, domain.Empathy).
		Option("shrug", "No idea.").
		To("thanks")

	b.Step("overloaded").
		Says("You're a lifesaver! Here are my notes, it's about forty pages.").
		Option("backtrack", "Actually, I need to check my own deadlines first.").
		To("alternative").Scores(domain.SelfAdvocacy).
		Option("sigh", "...Okay.").
		To("thanks")

	b.Step("tense").
		Says("Wow, okay. I just asked.").
		Option("apologize", "Sorry, that came out wrong. I'm overloaded too.").
		To("alternative").Scores(domain.Clarity, domain.SocialAwareness)

	b.Step("thanks").
		Says("Thanks for being honest with me. See you at standup!")
	return b
}

package domain

// Persona describes the simulated conversational partner.
type Persona struct {
	Name          string `json:"name" yaml:"name" mapstructure:"name"`
	Role          string `json:"role,omitempty" yaml:"role,omitempty" mapstructure:"role"`
	Personality   string `json:"personality,omitempty" yaml:"personality,omitempty" mapstructure:"personality"`
	SpeakingStyle string `json:"speaking_style,omitempty" yaml:"speaking_style,omitempty" mapstructure:"speaking_style"`
}

// Scenario is the situation the conversation is set in.
type Scenario struct {
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Setting     string `json:"setting,omitempty" yaml:"setting,omitempty" mapstructure:"setting"`
	Objective   string `json:"objective,omitempty" yaml:"objective,omitempty" mapstructure:"objective"`
	Difficulty  string `json:"difficulty,omitempty" yaml:"difficulty,omitempty" mapstructure:"difficulty"`
}

// UserProfile tailors prompts to the person practicing.
type UserProfile struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Age        int      `json:"age,omitempty" yaml:"age,omitempty" mapstructure:"age"`
	Goals      []string `json:"goals,omitempty" yaml:"goals,omitempty" mapstructure:"goals"`
	Challenges []string `json:"challenges,omitempty" yaml:"challenges,omitempty" mapstructure:"challenges"`
}

// Metadata keys read from the root step of a graph in hybrid mode.
const (
	MetaPersonaName        = "persona"
	MetaPersonaRole        = "persona_role"
	MetaPersonaPersonality = "persona_personality"
	MetaScenarioTitle      = "scenario"
	MetaScenarioSetting    = "setting"
	MetaScenarioObjective  = "objective"
)

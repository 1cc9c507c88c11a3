package config

import "strings"

// Messages holds every user-facing reply. Empty fields fall back to the
// English defaults. Selected may reference {establishment}.
type Messages struct {
	ChooseEstablishment string `yaml:"choose_establishment"`
	Selected            string `yaml:"selected"`
	NotInMenu           string `yaml:"not_in_menu"`
	StartFirst          string `yaml:"start_first"`
	ThankYou            string `yaml:"thank_you"`
	PhotoNotSaved       string `yaml:"photo_not_saved"`
	TryAgain            string `yaml:"try_again"`
	Cancelled           string `yaml:"cancelled"`
	Help                string `yaml:"help"`
	UnknownCommand      string `yaml:"unknown_command"`
	DocumentUnsupported string `yaml:"document_unsupported"`
	RateLimited         string `yaml:"rate_limited"`
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		ChooseEstablishment: "Choose an establishment:",
		Selected:            "You selected {establishment}. Write your feedback and/or attach a photo.",
		NotInMenu:           "Please choose an establishment from the list.",
		StartFirst:          "Please choose an establishment first with /start",
		ThankYou:            "Thank you for your feedback! The team has already started working on improvements.\nTo leave another review, press /start",
		PhotoNotSaved:       "The photo could not be saved, your feedback was recorded without it.",
		TryAgain:            "Sorry, your feedback could not be saved. Please try again with /start",
		Cancelled:           "Cancelled. Press /start to begin again.",
		Help:                "/start - choose an establishment and leave feedback\n/cancel - abort the current feedback\n/help - show this message",
		UnknownCommand:      "Unknown command. Use /help to see what I can do.",
		DocumentUnsupported: "Please send the picture as a photo, not as a file.",
		RateLimited:         "Too many messages, please slow down.",
	}
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&m.ChooseEstablishment, def.ChooseEstablishment)
	fill(&m.Selected, def.Selected)
	fill(&m.NotInMenu, def.NotInMenu)
	fill(&m.StartFirst, def.StartFirst)
	fill(&m.ThankYou, def.ThankYou)
	fill(&m.PhotoNotSaved, def.PhotoNotSaved)
	fill(&m.TryAgain, def.TryAgain)
	fill(&m.Cancelled, def.Cancelled)
	fill(&m.Help, def.Help)
	fill(&m.UnknownCommand, def.UnknownCommand)
	fill(&m.DocumentUnsupported, def.DocumentUnsupported)
	fill(&m.RateLimited, def.RateLimited)
	return m
}

// SelectedFor renders the confirmation for a chosen establishment.
func (m Messages) SelectedFor(establishment string) string {
	return strings.ReplaceAll(m.Selected, "{establishment}", establishment)
}

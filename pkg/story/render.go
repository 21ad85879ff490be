package story

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Render writes a plain transcript: one numbered, title-cased line per
// action and a closing line once the story has ended.
func Render(s *Story) string {
	title := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "Story %s\n", s.ID)
	for i, a := range s.Actions {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, title.String(a.String()))
	}
	for _, av := range s.Avatars() {
		if !av.Alive {
			fmt.Fprintf(&b, "     %s died in year %d.\n", title.String(av.Character.Display()), av.DiedYear)
		}
	}
	if s.Ended() {
		b.WriteString("The end.\n")
	}
	return b.String()
}

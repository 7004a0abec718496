package feed

import (
	"fmt"
	"time"

	"github.com/DonyChristie/crux/internal/model"
)

// sampleContents seeds the feed when the posts subscription is
// unavailable, so a first-time reader still sees what the board is for.
var sampleContents = []string{
	"The key to understanding consciousness might not be in neuroscience but in information theory.",
	"If we're living in a simulation, the strongest evidence would be mathematical impossibilities, not glitches.",
	"Most people underestimate how much their worldview is shaped by the decade they grew up in.",
	"The hardest part of changing your mind isn't finding new evidence - it's admitting you were wrong.",
	"We treat attention like it's infinite, but it might be our most finite resource.",
	"The best ideas often come from combining two seemingly unrelated fields.",
	"If you can't explain something simply, you might not understand it as well as you think.",
	"The future belongs to people who can unlearn as quickly as they learn.",
	"We're optimizing for engagement when we should be optimizing for understanding.",
	"The most important skill in the 21st century might be knowing what to ignore.",
	"Your beliefs should pay rent - if they don't help you predict or explain the world, why keep them?",
	"We undervalue optionality. Having choices is often more valuable than making the 'perfect' choice.",
	"The map is not the territory, but most arguments are about maps, not territories.",
	"If an idea can't survive contact with reality, it's not reality that's wrong.",
	"The stories we tell ourselves about ourselves are the most persuasive lies we believe.",
	"Changing the incentives changes everything. Most problems are incentive problems.",
	"We live in an age of abundance pretending we're in an age of scarcity.",
	"The crux of most disagreements is different underlying assumptions, not different logic.",
	"If you're not embarrassed by your past self, you're probably not growing.",
	"The question isn't whether you have biases - it's whether you're aware of them.",
}

// SampleItems builds the fallback feed: read-only posts by Anonymous,
// spaced a minute apart ending at now, with no ratings.
func SampleItems(now time.Time) []Item {
	items := make([]Item, len(sampleContents))
	for i, content := range sampleContents {
		at := now.Add(-time.Duration(i) * time.Minute)
		items[i] = Item{
			Post: model.Post{
				ID:        fmt.Sprintf("sample-%d", i+1),
				Content:   content,
				Author:    "Anonymous",
				CreatedAt: at,
			},
		}
	}
	return items
}

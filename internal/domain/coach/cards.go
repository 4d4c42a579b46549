package coach

import (
	"fmt"
	"strings"

	"github.com/paulhankin/poker"
)

// ParseCard reads "As", "Td", "10h" or "kc".
func ParseCard(s string) (poker.Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	rankPart, suitPart := s[:len(s)-1], s[len(s)-1]

	var suit poker.Suit
	switch suitPart {
	case 'c', 'C':
		suit = poker.Club
	case 'd', 'D':
		suit = poker.Diamond
	case 'h', 'H':
		suit = poker.Heart
	case 's', 'S':
		suit = poker.Spade
	default:
		return 0, fmt.Errorf("%w: %q has no suit", ErrInvalidCard, s)
	}

	var rank poker.Rank
	switch strings.ToUpper(rankPart) {
	case "A":
		rank = 1
	case "K":
		rank = 13
	case "Q":
		rank = 12
	case "J":
		rank = 11
	case "T", "10":
		rank = 10
	default:
		if len(rankPart) != 1 || rankPart[0] < '2' || rankPart[0] > '9' {
			return 0, fmt.Errorf("%w: %q has no rank", ErrInvalidCard, s)
		}
		rank = poker.Rank(rankPart[0] - '0')
	}

	c, err := poker.MakeCard(suit, rank)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidCard, s, err)
	}
	return c, nil
}

// parseCards parses every card and rejects repeats within and across sets.
func parseCards(seen map[poker.Card]string, raw []string) ([]poker.Card, error) {
	out := make([]poker.Card, 0, len(raw))
	for _, r := range raw {
		c, err := ParseCard(r)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %q duplicates %q", ErrInvalidCard, r, prev)
		}
		seen[c] = r
		out = append(out, c)
	}
	return out, nil
}

// describeBest names the best five-card hand among 5 to 7 cards.
func describeBest(cards []poker.Card) (string, error) {
	switch len(cards) {
	case 5, 7:
		return poker.Describe(cards)
	case 6:
		var best [5]poker.Card
		bestScore := int16(-1)
		var five [5]poker.Card
		for skip := range cards {
			k := 0
			for i, c := range cards {
				if i != skip {
					five[k] = c
					k++
				}
			}
			if score := poker.Eval5(&five); score > bestScore {
				bestScore = score
				best = five
			}
		}
		return poker.Describe(best[:])
	default:
		return "", fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidCard, len(cards))
	}
}

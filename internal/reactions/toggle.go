package reactions

// Toggle returns the reactions map after userID toggles emoji. A user is
// either reacted or not reacted with a given emoji, never counted twice;
// an emoji whose last reactor toggles off is removed from the map entirely,
// so no key ever holds an empty set. The input map is not mutated.
//
// Two clients toggling the same emoji concurrently both compute a next map
// from the same starting point and the store keeps whichever write lands
// last, so one of the toggles can be lost. The store contract offers no
// stronger primitive; callers accept this.
func Toggle(current map[string][]string, emoji, userID string) map[string][]string {
	next := make(map[string][]string, len(current)+1)
	for key, users := range current {
		if key == emoji {
			continue
		}
		next[key] = append([]string(nil), users...)
	}

	users := current[emoji]
	if contains(users, userID) {
		remaining := make([]string, 0, len(users)-1)
		for _, id := range users {
			if id != userID {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) > 0 {
			next[emoji] = remaining
		}
		return next
	}

	next[emoji] = append(append([]string(nil), users...), userID)
	return next
}

func contains(users []string, userID string) bool {
	for _, id := range users {
		if id == userID {
			return true
		}
	}
	return false
}

package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mhso/IntFar-sub002/internal/match"
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// parseWagers parses "amount event [@player]" segments joined by "&" into
// the wagers of one ticket. Amount may be "all" to stake the full balance
// on a single wager.
func parseWagers(input string, balance int) ([]match.Wager, error) {
	segments := strings.Split(input, "&")

	wagers := make([]match.Wager, 0, len(segments))
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("expected `<amount> <event> [@player]`, got `%s`", strings.TrimSpace(seg))
		}

		var amount int
		if strings.EqualFold(fields[0], "all") {
			if len(segments) > 1 {
				return nil, fmt.Errorf("`all` can only be used for a single bet")
			}
			amount = balance
		} else {
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("invalid amount `%s`", fields[0])
			}
			amount = n
		}
		if amount <= 0 {
			return nil, fmt.Errorf("amount must be positive")
		}

		w := match.Wager{EventID: strings.ToLower(fields[1]), Amount: amount}
		if len(fields) == 3 {
			m := mentionPattern.FindStringSubmatch(fields[2])
			if m == nil {
				return nil, fmt.Errorf("invalid target `%s`, mention a player", fields[2])
			}
			w.TargetID, _ = strconv.ParseInt(m[1], 10, 64)
		}
		wagers = append(wagers, w)
	}
	return wagers, nil
}

package common

// LineOp is one step of a line edit script: either add Text before old line
// Loc, or delete old line Loc.
type LineOp struct {
	Loc  int    `json:"loc"`
	Add  bool   `json:"add"`
	Text string `json:"text"`
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// create a diff between two line sequences
// returns list of operations to change
// s1 into s2
func DiffLines(s1, s2 []string) []LineOp {
	dp := make([][]int, len(s1)+1)
	dp[0] = make([]int, len(s2)+1)

	// DP to calculate diff
	for j := 0; j < len(s2)+1; j++ {
		dp[0][j] = j
	}

	for i := 1; i < len(s1)+1; i++ {
		dp[i] = make([]int, len(s2)+1)
		dp[i][0] = i

		for j := 1; j < len(s2)+1; j++ {
			dp[i][j] = min(dp[i][j-1], dp[i-1][j]) + 1

			if s1[i-1] == s2[j-1] && dp[i-1][j-1] < dp[i][j] {
				dp[i][j] = dp[i-1][j-1]
			}
		}
	}

	i := len(s1)
	j := len(s2)

	res := []LineOp{}

	// collect diff into slice
	for i > 0 || j > 0 {
		if i == 0 {
			res = append(res, LineOp{Add: true, Loc: i, Text: s2[j-1]})
			j--
		} else if j == 0 {
			res = append(res, LineOp{Add: false, Loc: i - 1, Text: s1[i-1]})
			i--
		} else if s1[i-1] == s2[j-1] && dp[i][j] == dp[i-1][j-1] {
			i--
			j--
		} else if dp[i][j] == dp[i][j-1]+1 {
			res = append(res, LineOp{Add: true, Loc: i, Text: s2[j-1]})
			j--
		} else {
			res = append(res, LineOp{Add: false, Loc: i - 1, Text: s1[i-1]})
			i--
		}
	}

	// reverse order
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}

	return res
}

// applies a set of operations (in increasing Loc
// order) to a line sequence
func ApplyLines(s []string, ops []LineOp) []string {
	res := []string{}

	i := 0

	for _, op := range ops {
		res = append(res, s[i:op.Loc]...)
		i = op.Loc

		if op.Add {
			res = append(res, op.Text)
		} else {
			i++
		}
	}
	if i < len(s) {
		res = append(res, s[i:]...)
	}

	return res
}

package trajectory

import (
	"fmt"
	"math/rand"
)

// CreatorColor marks synthetic creator nodes.
const CreatorColor = "rgb(255, 223, 128)"

// Colorize returns a copy of nodes with display colors. Creator nodes get CreatorColor,
// every other node a random light color drawn from rnd.
func Colorize(nodes []Node, rnd *rand.Rand) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	for i := range out {
		if out[i].Kind == NodeCreator {
			out[i].Color = CreatorColor
			continue
		}
		out[i].Color = lightColor(rnd)
	}
	return out
}

func lightColor(rnd *rand.Rand) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", 128+rnd.Intn(128), 128+rnd.Intn(128), 128+rnd.Intn(128))
}

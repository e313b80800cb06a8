package ad_test

import (
	"fmt"

	"github.com/matzehuels/adjoint/pkg/ad"
)

func ExampleGraph() {
	g := ad.NewGraph()

	// Constant operands fold immediately.
	five := g.Add(g.Const(2), g.Const(3))
	fmt.Println(g.Node(five).Kind, g.Node(five).Value)

	// Identical requests return the same node.
	x := g.Input(0, 1.5)
	fmt.Println(g.Mul(x, five) == g.Mul(x, five))
	// Output:
	// Const 5
	// true
}

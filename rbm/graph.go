package rbm

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
)

// ToDot renders the bipartite network as a Graphviz graph. Units are labelled with
// their biases, edges with their weights.
func (r *RBM) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName(r.name); err != nil {
		panic(err)
	}
	g.SetDir(false)
	g.AddAttr(r.name, "rankdir", "LR")

	a := r.VisibleBias().Data().([]float64)
	b := r.HiddenBias().Data().([]float64)
	w := r.Weights().Data().([]float64)

	g.AddSubGraph(r.name, "cluster_visible", map[string]string{"label": `"visible"`})
	for i, bias := range a {
		g.AddNode("cluster_visible", visibleID(i), map[string]string{
			"shape": "circle",
			"label": fmt.Sprintf(`"v%d\n%.3f"`, i, bias),
		})
	}
	g.AddSubGraph(r.name, "cluster_hidden", map[string]string{"label": `"hidden"`})
	for j, bias := range b {
		g.AddNode("cluster_hidden", hiddenID(j), map[string]string{
			"shape": "circle",
			"label": fmt.Sprintf(`"h%d\n%.3f"`, j, bias),
		})
	}

	for i := range a {
		for j := range b {
			g.AddEdge(visibleID(i), hiddenID(j), false, map[string]string{
				"label": fmt.Sprintf(`"%.3f"`, w[i*r.Hidden+j]),
			})
		}
	}
	return g.String()
}

func visibleID(i int) string { return fmt.Sprintf("v%d", i) }
func hiddenID(j int) string  { return fmt.Sprintf("h%d", j) }

package domain

func fixtureGraph() Graph {
	g := NewGraph()
	g.Nodes["laptop"] = NewNode("laptop", ComponentItem, "Laptop").WithPosition(Point{X: 10, Y: 20})
	g.Nodes["office"] = NewNode("office", ComponentLocation, "Office").WithPosition(Point{X: 100, Y: 20})
	g.Nodes["server"] = NewNode("server", ComponentItem, "Server").WithPosition(Point{X: 10, Y: 200})
	g.Edges["e1"] = NewEdge("e1", "laptop", "office", RelationAtLocation)
	g.Edges["e2"] = NewEdge("e2", "laptop", "server", RelationNetwork)
	g.Groups["g1"] = Group{ID: "g1", Label: "devices", NodeIDs: []string{"laptop", "server"}}
	return g
}

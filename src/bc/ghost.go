package bc

// Ghost values for a face half a cell from the adjacent interior value.
// The normal n points out of the domain on both sides, so the outward
// derivative is (ghost - adj)/dx.

// DirichletGhost returns the ghost value giving phi = v on the face.
func DirichletGhost(adj, v float64) float64 {
	return 2*v - adj
}

// NeumannGhost returns the ghost value giving dphi/dn = g on the face.
func NeumannGhost(adj, g, dx float64) float64 {
	return adj + g*dx
}

// RobinGhost returns the ghost value giving a*phi + b*dphi/dn = f on the
// face. (a, b) = (1, 0) reduces to DirichletGhost and (0, 1) to
// NeumannGhost.
func RobinGhost(adj, a, b, f, dx float64) float64 {
	return (f - adj*(a/2-b/dx)) / (a/2 + b/dx)
}

// GhostSlope is d(ghost)/d(adj) for a face of kind k, the amount the
// adjacent cell feeds back into its own stencil through the ghost. a and b
// are only read for Robin faces.
func GhostSlope(k Kind, a, b, dx float64) float64 {
	switch k {
	case Dirichlet:
		return -1
	case Neumann:
		return 1
	case Robin:
		return -(a/2 - b/dx) / (a/2 + b/dx)
	}
	return 0
}

// FaceValue recovers the face datum stored implicitly in a ghost/adjacent
// pair: the face value for Dirichlet faces and the outward derivative for
// Neumann faces. Other kinds return 0.
func FaceValue(k Kind, ghost, adj, dx float64) float64 {
	switch k {
	case Dirichlet:
		return (ghost + adj) / 2
	case Neumann:
		return (ghost - adj) / dx
	}
	return 0
}

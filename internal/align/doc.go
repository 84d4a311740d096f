// Package align scores how closely two normalized contours agree.
//
// Each contour is split at its tip into a leading edge (start of leading edge
// to tip) and a trailing edge (tip to end of trailing edge). Both edges are
// resampled to the same number of points by arc length, and each edge is
// aligned against its counterpart with a monotonic dynamic-programming table:
//
//	cost[i][j] = local(p_i, q_j) + min(cost[i-1][j], cost[i][j-1], cost[i-1][j-1])
//
// The reported distance is the summed cost of the two optimal paths divided
// by the number of steps in them, so it is expressed in canonical units per
// correspondence regardless of sampling density.
//
// Registration decides where the leading-edge paths may begin. RegistrationFixed
// pins the start of one leading edge to the start of the other.
// RegistrationTrimLeading lets the path begin anywhere within the first trim
// fraction of either leading edge, so a trace that starts higher or lower on
// the fin is not charged for the part its counterpart lacks. Both axes are
// freed, which keeps the distance symmetric. The tip and the trailing edge are
// always pinned.
//
// Numeric trouble never surfaces as an error: a zero-length edge or a
// non-finite total yields the configured penalty distance with Penalized set.
// Only structurally broken input (nil contours, landmarks out of range) fails
// with ErrAlignment.
package align

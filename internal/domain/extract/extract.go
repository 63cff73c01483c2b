// Package extract turns tracked bodies into the compact records carried by a
// snapshot, together with a per-body gesture flag.
package extract

import "github.com/okian/bodytrack/internal/domain/model"

// Result is the extraction output for one body.
type Result struct {
	Position model.BodyPosition
	// HandsRaised is a local diagnostic; it never reaches the snapshot.
	HandsRaised bool
}

// Body extracts the pelvis position and gesture flag of b.
// b must carry the full joint taxonomy; the frame source guarantees it.
func Body(b *model.Body) Result {
	pelvis := b.Skeleton.At(model.JointPelvis)
	return Result{
		Position: model.BodyPosition{
			ID: b.ID,
			X:  pelvis.X,
			Y:  pelvis.Y,
			Z:  pelvis.Z,
		},
		HandsRaised: HandsRaised(&b.Skeleton),
	}
}

// HandsRaised reports whether both wrists are above the head.
// Y grows toward the ground, so "above" means a smaller Y.
func HandsRaised(s *model.Skeleton) bool {
	head := s.At(model.JointHead).Y
	return s.At(model.JointWristLeft).Y < head && s.At(model.JointWristRight).Y < head
}

// Frame extracts every body of f in device index order.
func Frame(f *model.BodyFrame) []Result {
	out := make([]Result, 0, len(f.Bodies))
	for i := range f.Bodies {
		out = append(out, Body(&f.Bodies[i]))
	}
	return out
}

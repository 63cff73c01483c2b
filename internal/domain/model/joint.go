package model

// Joint indexes a skeletal landmark in the tracker's fixed joint taxonomy.
// The numbering matches the order in which the device reports joints.
type Joint int

// Joint taxonomy in device order.
const (
	JointPelvis Joint = iota
	JointSpineNavel
	JointSpineChest
	JointNeck
	JointClavicleLeft
	JointShoulderLeft
	JointElbowLeft
	JointWristLeft
	JointHandLeft
	JointHandTipLeft
	JointThumbLeft
	JointClavicleRight
	JointShoulderRight
	JointElbowRight
	JointWristRight
	JointHandRight
	JointHandTipRight
	JointThumbRight
	JointHipLeft
	JointKneeLeft
	JointAnkleLeft
	JointFootLeft
	JointHipRight
	JointKneeRight
	JointAnkleRight
	JointFootRight
	JointHead
	JointNose
	JointEyeLeft
	JointEarLeft
	JointEyeRight
	JointEarRight

	// JointCount is the number of joints every tracked body carries.
	JointCount int = iota
)

var jointNames = [JointCount]string{
	"pelvis", "spine_navel", "spine_chest", "neck",
	"clavicle_left", "shoulder_left", "elbow_left", "wrist_left",
	"hand_left", "handtip_left", "thumb_left",
	"clavicle_right", "shoulder_right", "elbow_right", "wrist_right",
	"hand_right", "handtip_right", "thumb_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
	"head", "nose", "eye_left", "ear_left", "eye_right", "ear_right",
}

// Valid reports whether j is inside the taxonomy.
func (j Joint) Valid() bool { return j >= 0 && int(j) < JointCount }

// String returns the snake_case joint name.
func (j Joint) String() string {
	if !j.Valid() {
		return "unknown"
	}
	return jointNames[j]
}

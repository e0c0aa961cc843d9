// Package motion loads and validates recorded motion sequences.
//
// A sequence is a multi-channel time series captured from the robot: an
// ordered list of actuator names, a playback frequency, and one frame per
// time step. Each frame holds a goal position for every actuator (aligned by
// position with the actor list) plus two opaque hand commands.
//
// Documents use the recorder's JSON layout:
//
//	{
//	  "actors_NAME": ["l_shoulder_y", "r_shoulder_y"],
//	  "freq": 10,
//	  "frame_number": 2,
//	  "position": {
//	    "0": {"Robot": [0.1, -0.1], "Right_hand": "open", "Left_hand": "close"},
//	    "1": {"Robot": [0.3, -0.3], "Right_hand": "open", "Left_hand": "close"}
//	  }
//	}
//
// Parse validates every frame eagerly, so a corrupt recording is rejected
// before any command reaches the robot.
//
// # Stores
//
//   - FileStore: a directory of <id>.json files (the recorder's layout)
//   - SQLiteRepository: documents stored in the motion_sequences table
//
// Neither store caches; every Load re-reads the source.
package motion

// Package biometric decides whether two face images or two voice clips
// belong to the same person.
//
// A [Pipeline] runs one [Request] through the stages
//
//	Fetching → Preprocessing → Verifying → Cleanup → Done
//
// dispatching to exactly one of two strategies by [Modality]: [FaceMatch]
// compares face embeddings, [VoiceMatch] diarizes the two clips joined by
// silence and checks that a single speaker was found ([Aggregate]).
//
// Every failure becomes a [Verdict] with Verified false and a [Reason];
// nothing is returned as an error or panic to the caller except malformed
// requests. Transient files are removed in the Cleanup stage whatever the
// outcome.
package biometric

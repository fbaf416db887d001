// Package plate validates recognized license plate text and scores plate
// hypotheses.
//
// A Validator normalizes raw recognizer output (uppercase, A-Z and 0-9
// only) and checks it against Rules: a length bound, optional letter and
// digit requirements, and an ordered list of regional grammars. A Scorer
// turns a validation result and the geometry of its region into a point
// score in [0, 95] using Weights.
//
// The strict and permissive profiles differ only in data. StrictRules,
// PermissiveRules, StrictWeights and PermissiveWeights return the two
// built-in bundles; any other combination goes through the same code.
//
// # Score Model
//
// Points are added in a fixed order, with early termination on hard
// rejects:
//
//  1. Baseline (strict 40, permissive 50)
//  2. Invalid format: strict returns 0, permissive skips the bonus
//  3. Valid format: +40 strict, +25 permissive
//  4. Size ratio inside the preferred band: +15. Strict also returns 0
//     when the ratio leaves a wider band.
//  5. Strict only: aspect ratio inside 2.0-6.0 adds 15, otherwise -20
//  6. Length 5-8: permissive +10; strict -15 when outside
//  7. Multiply by Weights.Multiplier when set (1.1 boosts the aggressive
//     engine)
//  8. Clamp to [0, 95]
//
// The score is a heuristic, not a probability. The 95 ceiling keeps it
// from ever claiming certainty.
package plate

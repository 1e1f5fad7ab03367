// Package voice parses spoken transaction phrases ("spent 250 rupees on
// groceries yesterday") into structured drafts: amount, income or expense,
// a category hint, a cleaned description and a date. Parsing is heuristic
// and local; the caller combines the draft with a model prediction.
package voice

// Package corrections persists user overrides of predicted categories and
// aggregates them into retraining-readiness statistics. Each correction is a
// training example the model got wrong; once enough accumulate the model is
// ready to be retrained.
package corrections

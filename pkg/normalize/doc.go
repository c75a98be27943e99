// Package normalize turns raw chat command text into the canonical payload handed to the
// renderer, and checks that the payload has the minimal table shape (teams and players).
package normalize

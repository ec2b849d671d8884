// Package analysis looks at a recorded controller trace after the fact.
//
//   - [ErrorSpectrum]: power spectrum of the tracking error, to find a
//     loop that oscillates instead of settling
//   - [ErrorPhase]: error against its rate of change
//   - [PhaseToASCII]: terminal rendering of a phase portrait
//
// A tuned loop shows a spectrum with no dominant peak once settled and a
// phase portrait that spirals into the origin:
//
//	spec, err := analysis.ErrorSpectrum(storage.Subsystem(samples, trace.Flywheel))
//	if err == nil {
//	    hz, _ := spec.Dominant()
//	}
package analysis

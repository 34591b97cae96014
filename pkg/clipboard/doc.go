// Package clipboard moves text, HTML, and image data into the paste path of
// the composer, behind one Bridge interface the publishing flow consumes
// uniformly.
//
// Two interchangeable strategies exist, selected once per run:
//
//   - system: the OS clipboard plus an OS-level paste keystroke, for
//     platforms whose native clipboard tooling is reliable.
//   - synthetic: a ClipboardEvent constructed in-page and dispatched on the
//     focused editable region, sidestepping the OS clipboard entirely.
//
// Detect picks the strategy from the host platform and available tooling;
// a run never mixes strategies.
package clipboard

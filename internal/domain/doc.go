// Package domain contains the entities of the application: decks, the cards
// they hold and the log of every review. Scheduling math lives in the srs
// subpackage; this package only carries the data the scheduler reads and writes,
// independent of any storage backend or command line.
package domain

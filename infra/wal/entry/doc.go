// Package entry is the command journal: a segmented binary log of every
// command handed to the processor, in the order it was applied.
package entry

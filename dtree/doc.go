/*
Package dtree is a distributed dynamic scheduler for irregular parallel
loops. The items [0, N) of a loop are handed out to the ranks of a group
arranged in a tree, and inside each rank to any number of worker goroutines.

At creation every rank computes its place in the tree and the block of
items it starts with, both from the shared options alone. Workers then pull
chunks with GetWork. When a rank runs dry its coordinator (Run) asks its
parent for more; a parent answers from its own remaining items, passing on
a share proportional to the child's declared speed, or asks its own parent
in turn. An empty answer means nothing is left above, and once a rank and
its whole subtree are dry Run returns false.

A typical worker loop:

	for {
		first, last, n, err := tree.GetWork()
		if err != nil {
			return err
		}
		if n > 0 {
			process(first, last)
			continue
		}
		more, err := tree.Run()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
*/
package dtree

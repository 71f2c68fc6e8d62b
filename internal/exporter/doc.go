// Package exporter writes a run's tables to disk.
//
// Every file is first rendered into a staging directory inside the output
// directory. Staging records the row count, size and BLAKE2b-256 digest of
// each file. Commit then renames the files into place in the order they
// were staged, so a reader that watches the last file sees a complete
// snapshot once it changes. Abort discards everything staged.
//
// Example usage:
//
//	st, err := exporter.NewStaging(paths.ComputeDir, logger)
//	if err != nil {
//		return err
//	}
//	defer st.Abort()
//
//	outputs, err := st.WriteTables(ctx, positions, changes, metrics)
//	...
//	err = st.Commit()
package exporter

// Package diskimage attaches and detaches macOS disk images with hdiutil.
//
// Attach answers any license agreement prompt and reads the mount point from
// hdiutil's tab-separated output; Detach forces the volume out.
package diskimage

package common

// AppName is used for on-disk names (backup folder, file prefix).
const AppName = "AuthIgel"

// BackupFolderName is the sub-directory that holds automatic backups.
const BackupFolderName = AppName + "Backups"

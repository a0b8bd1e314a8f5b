package assembler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"starsound/internal/fileutil"
	"starsound/internal/logging"
	"starsound/internal/patch"
	"starsound/internal/services"
	"starsound/internal/vanilla"
)

// Assembler lays finished files and patches out as a Starbound mod tree.
type Assembler struct {
	logger *slog.Logger
}

// New returns an Assembler logging through the given logger.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{logger: logging.NewComponentLogger(logger, "assembler")}
}

// Assemble executes one biome's copy plan and writes its patch file under
// {modRoot}/biomes/{category}/{biome}.biome.patch. Destinations that already
// hold identical content are skipped. A failed copy aborts this biome and
// leaves others untouched.
func (a *Assembler) Assemble(modRoot string, biome vanilla.BiomeKey, ops []patch.Op, copies []patch.FileCopy) error {
	for _, fc := range copies {
		dest := filepath.Join(modRoot, filepath.FromSlash(fc.Dest))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "assembler", "copy", fc.Dest, err)
		}
		if _, err := os.Stat(dest); err == nil {
			same, err := fileutil.SameContent(fc.Src, dest)
			if err == nil && same {
				a.logger.Debug("destination already identical",
					slog.String("dest", fc.Dest))
				continue
			}
		}
		if err := fileutil.CopyFileVerified(fc.Src, dest); err != nil {
			return services.Wrap(services.ErrTransient, "assembler", "copy", fc.Dest, err)
		}
		a.logger.Debug("copied track",
			slog.String("src", fc.Src),
			slog.String("dest", fc.Dest))
	}

	if len(ops) == 0 {
		a.logger.Warn("no patch operations for biome; skipping patch file",
			slog.String("biome", biome.String()))
		return nil
	}

	encoded, err := patch.Encode(ops)
	if err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "encode patch", biome.String(), err)
	}
	patchDir := filepath.Join(modRoot, "biomes", biome.Category)
	if err := os.MkdirAll(patchDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "write patch", biome.String(), err)
	}
	patchPath := filepath.Join(patchDir, biome.Biome+".biome.patch")
	if err := os.WriteFile(patchPath, encoded, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "write patch", biome.String(), err)
	}

	a.logger.Info("biome assembled",
		slog.String("biome", biome.String()),
		slog.Int("ops", len(ops)),
		slog.Int("copies", len(copies)))
	return nil
}

// ResetPatches removes the whole patch tree under {modRoot}/biomes/ so a
// regeneration never accumulates patches from earlier configurations. Music
// files and metadata are left alone.
func (a *Assembler) ResetPatches(modRoot string) error {
	target := filepath.Join(modRoot, "biomes")
	if err := os.RemoveAll(target); err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "reset patches", target, err)
	}
	return nil
}

// Install exports the mod as loose files: {destDir}/{modName} is replaced
// wholesale and a stale {modName}.pak is removed so the two formats never
// coexist. Returns the installed path.
func (a *Assembler) Install(modRoot, destDir string) (string, error) {
	modName := filepath.Base(filepath.Clean(modRoot))
	if modName == "." || modName == string(filepath.Separator) {
		return "", services.Wrap(services.ErrValidation, "assembler", "install", "mod root has no name: "+modRoot, nil)
	}
	if _, err := os.Stat(modRoot); err != nil {
		return "", services.Wrap(services.ErrNotFound, "assembler", "install", modRoot, err)
	}

	installed := filepath.Join(destDir, modName)
	if err := os.RemoveAll(installed); err != nil {
		return "", services.Wrap(services.ErrTransient, "assembler", "install", "remove existing folder", err)
	}
	pak := filepath.Join(destDir, modName+".pak")
	if err := os.Remove(pak); err != nil && !os.IsNotExist(err) {
		return "", services.Wrap(services.ErrTransient, "assembler", "install", "remove stale pak", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "assembler", "install", destDir, err)
	}
	if err := fileutil.CopyTree(modRoot, installed); err != nil {
		return "", services.Wrap(services.ErrTransient, "assembler", "install", fmt.Sprintf("copy %s to %s", modRoot, installed), err)
	}

	a.logger.Info("mod installed", slog.String("path", installed))
	return installed, nil
}

// Metadata is the Starbound _metadata document at the mod root.
type Metadata struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendlyName"`
	Author       string `json:"author"`
	Description  string `json:"description"`
	Version      string `json:"version"`
	Priority     int    `json:"priority"`
}

// DefaultMetadata fills the fields the game expects for a mod that only
// patches music. Priority 9999 keeps the patches applying after other mods.
func DefaultMetadata(modName string) Metadata {
	return Metadata{
		Name:         strings.ReplaceAll(modName, " ", "_"),
		FriendlyName: modName,
		Author:       "StarSound User",
		Description:  "StarSound Generated Mod - Edit the description in _metadata",
		Version:      "1.0.0",
		Priority:     9999,
	}
}

// WriteMetadata writes the _metadata document at the mod root, filling any
// blank fields from DefaultMetadata.
func (a *Assembler) WriteMetadata(modRoot string, meta Metadata) error {
	defaults := DefaultMetadata(meta.FriendlyName)
	if meta.FriendlyName == "" {
		defaults = DefaultMetadata(filepath.Base(filepath.Clean(modRoot)))
		meta.FriendlyName = defaults.FriendlyName
	}
	if meta.Name == "" {
		meta.Name = defaults.Name
	}
	if meta.Author == "" {
		meta.Author = defaults.Author
	}
	if meta.Description == "" {
		meta.Description = defaults.Description
	}
	if meta.Version == "" {
		meta.Version = defaults.Version
	}
	if meta.Priority == 0 {
		meta.Priority = defaults.Priority
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "write metadata", modRoot, err)
	}
	if err := os.MkdirAll(modRoot, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "write metadata", modRoot, err)
	}
	if err := os.WriteFile(filepath.Join(modRoot, "_metadata"), data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "assembler", "write metadata", modRoot, err)
	}
	return nil
}

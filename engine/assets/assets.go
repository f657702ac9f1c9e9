package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/assets/loaders"
	"github.com/spaghettifunk/scop/engine/core"
	"github.com/spaghettifunk/scop/engine/resources"
)

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the files under a root directory, loads them through
// the loader registered for their type and, when watching, fires
// EVENT_CODE_SHADERS_CHANGED for every compiled shader written on disk.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[resources.ResourceType]Loader),
		done:    make(chan struct{}),
	}
	// Register loaders
	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(resources.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(resources.ResourceTypeText, &loaders.BinaryLoader{})
	return am
}

// Initialize indexes root and, if watch is set, starts watching it for changes.
func (am *AssetManager) Initialize(root string, watch bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrap(err, "resolve asset root")
	}
	am.root = abs

	if err := am.index(); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	am.fsnotify = fsWatch
	if err := am.fsnotify.Add(am.root); err != nil {
		am.fsnotify.Close()
		am.fsnotify = nil
		return errors.Wrapf(err, "watch %s", am.root)
	}

	am.wg.Add(1)
	go am.start()
	core.LogDebug("Watching %s for asset changes.", am.root)
	return nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	return nil
}

// Root returns the absolute directory the manager serves.
func (am *AssetManager) Root() string {
	return am.root
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads the file name (relative to the root) with the loader of its type.
func (am *AssetManager) LoadAsset(name string, params interface{}) (*resources.Resource, error) {
	path := filepath.Join(am.root, name)
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return nil, errors.Errorf("unknown asset type: %s", name)
	}

	loader, loaderExists := am.loaders[assetType]
	if !loaderExists {
		return nil, errors.Errorf("no loader registered for asset type: %s", assetType)
	}

	res, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	// Load or reload asset from disk if necessary
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType, LastLoaded: time.Now()}
	am.mutex.Unlock()

	return res, nil
}

// LoadShader loads a compiled shader stage and returns its SPIR-V words.
func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	if determineAssetType(name) != resources.ResourceTypeShader {
		return nil, errors.Errorf("%s is not a compiled shader", name)
	}
	res, err := am.LoadAsset(name, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

// Lookup returns the index entry for an absolute path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			am.handleWatchError(e)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchError(err error) {
	core.LogError("asset watcher: %v", err)
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if !am.handleFileEvent(e.Name) {
			return
		}
		if determineAssetType(e.Name) == resources.ResourceTypeShader {
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_SHADERS_CHANGED,
				Data: e.Name,
			})
		}
	}
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

// index walks the root and records every file of a known type.
func (am *AssetManager) index() error {
	return filepath.Walk(am.root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) resources.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return resources.ResourceTypeShader
	case ".wgsl", ".vert", ".frag":
		return resources.ResourceTypeText
	case ".bin":
		return resources.ResourceTypeBinary
	default:
		return resources.ResourceTypeNone
	}
}

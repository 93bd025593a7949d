package file_settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

const jsonSuffix = ".json"

type adUnitConfig struct {
	ID     string `yaml:"id"`
	Config string `yaml:"config"`
}

type settingsFile struct {
	Accounts []settings.Account `yaml:"accounts"`
	Configs  []adUnitConfig     `yaml:"configs"`
}

// FileSettings is a settings.Store backed by local files.
//
// Everything is read into memory when it's built, and never changes afterwards.
type FileSettings struct {
	accounts          map[string]settings.Account
	configs           map[string]string
	storedIDToRequest map[string]string
	storedIDToImp     map[string]string
}

// New _immediately_ loads the settings document and the stored data directories.
//
// The settings document is YAML with "accounts" and "configs" lists. Each directory is expected
// to hold one "{id}.json" file per stored request or imp. Other files are ignored.
//
// Every problem found while loading is reported together in a single *errortypes.MalformedBackingStore.
func New(settingsFileName string, storedRequestsDir string, storedImpsDir string) (*FileSettings, error) {
	var errs []error

	file, err := readSettingsFile(settingsFileName)
	if err != nil {
		errs = append(errs, err)
	}
	storedIDToRequest, requestErrs := readStoredData(storedRequestsDir)
	errs = append(errs, requestErrs...)
	storedIDToImp, impErrs := readStoredData(storedImpsDir)
	errs = append(errs, impErrs...)

	fs := &FileSettings{
		accounts:          make(map[string]settings.Account, len(file.Accounts)),
		configs:           make(map[string]string, len(file.Configs)),
		storedIDToRequest: storedIDToRequest,
		storedIDToImp:     storedIDToImp,
	}
	for _, account := range file.Accounts {
		if _, ok := fs.accounts[account.ID]; ok {
			errs = append(errs, fmt.Errorf("%s: duplicate account id %q", settingsFileName, account.ID))
			continue
		}
		fs.accounts[account.ID] = account
	}
	for _, config := range file.Configs {
		if _, ok := fs.configs[config.ID]; ok {
			errs = append(errs, fmt.Errorf("%s: duplicate config id %q", settingsFileName, config.ID))
			continue
		}
		fs.configs[config.ID] = config.Config
	}

	if len(errs) > 0 {
		return nil, &errortypes.MalformedBackingStore{
			Message: errortypes.NewAggregateErrors("Failed to load file settings", errs).Error(),
		}
	}

	glog.Infof("Loaded %d accounts, %d configs, %d stored requests and %d stored imps from files",
		len(fs.accounts), len(fs.configs), len(fs.storedIDToRequest), len(fs.storedIDToImp))
	return fs, nil
}

func (fs *FileSettings) FetchAccount(ctx context.Context, accountID string) (*settings.Account, error) {
	account, ok := fs.accounts[accountID]
	if !ok {
		return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
	}
	return &account, nil
}

func (fs *FileSettings) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	config, ok := fs.configs[configID]
	if !ok {
		return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
	}
	return config, nil
}

func (fs *FileSettings) FetchStoredData(ctx context.Context, dataType settings.StoredDataType, ids []string) (map[string]string, error) {
	source := fs.storedIDToRequest
	if dataType == settings.ImpDataType {
		source = fs.storedIDToImp
	}
	data := make(map[string]string, len(ids))
	for _, id := range ids {
		if value, ok := source[id]; ok {
			data[id] = value
		}
	}
	return data, nil
}

func readSettingsFile(fileName string) (settingsFile, error) {
	var file settingsFile
	if glog.V(2) {
		glog.Infof("Reading settings from %s", fileName)
	}
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return file, err
	}
	if err := yaml.Unmarshal(b, &file); err != nil {
		return settingsFile{}, fmt.Errorf("%s: %v", fileName, err)
	}
	return file, nil
}

// readStoredData maps "{id}.json" file names in directory to their contents.
func readStoredData(directory string) (map[string]string, []error) {
	fileInfos, err := ioutil.ReadDir(directory)
	if err != nil {
		return nil, []error{err}
	}

	var errs []error
	data := make(map[string]string, len(fileInfos))
	for _, fileInfo := range fileInfos {
		if fileInfo.IsDir() || !strings.HasSuffix(fileInfo.Name(), jsonSuffix) {
			continue
		}
		path := filepath.Join(directory, fileInfo.Name())
		if glog.V(2) {
			glog.Infof("Reading stored data from %s", path)
		}
		fileData, err := ioutil.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !json.Valid(fileData) {
			errs = append(errs, fmt.Errorf("%s: not valid JSON", path))
			continue
		}
		data[strings.TrimSuffix(fileInfo.Name(), jsonSuffix)] = string(fileData)
	}
	return data, errs
}
